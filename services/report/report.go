// Package report delivers telemetry samples to a sink.
package report

import (
	"io"

	"powernode-go/types"
	"powernode-go/x/jsonw"
)

// Sender delivers one sample.
type Sender interface {
	Send(s types.Sample) error
}

// Encode writes s as a flat JSON object into buf and returns the object
// bytes, without the terminator.
func Encode(buf []byte, s types.Sample) ([]byte, error) {
	var w jsonw.Writer
	w.Begin(buf)
	w.AddUint(types.KeyTimestamp, s.TimestampMs)
	w.AddUint(types.KeyPowerA, uint32(s.PowerA))
	w.AddUint(types.KeyPowerB, uint32(s.PowerB))
	w.AddBool(types.KeyActuator, s.ActuatorOn)
	w.End()
	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DebugSink writes each sample as one JSON line ending in CRLF.
type DebugSink struct {
	w   io.Writer
	buf [96]byte
}

func NewDebugSink(w io.Writer) *DebugSink { return &DebugSink{w: w} }

func (d *DebugSink) Send(s types.Sample) error {
	b, err := Encode(d.buf[:len(d.buf)-2], s)
	if err != nil {
		return err
	}
	n := len(b)
	d.buf[n] = '\r'
	d.buf[n+1] = '\n'
	_, err = d.w.Write(d.buf[:n+2])
	return err
}
