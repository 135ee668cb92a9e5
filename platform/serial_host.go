//go:build !(rp2040 || rp2350)

package platform

import (
	"errors"
	"time"

	"github.com/goburrow/serial"

	"powernode-go/errcode"
)

// SerialLink is a modem link over a host serial device. Reads are chunked
// into a small buffer and handed out one byte at a time.
type SerialLink struct {
	port serial.Port
	buf  [64]byte
	head int
	tail int
}

// OpenSerial opens address (e.g. /dev/ttyUSB0) at 8N1.
func OpenSerial(address string, baud int) (*SerialLink, error) {
	p, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  10 * time.Millisecond,
	})
	if err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "platform.open_serial", Msg: address, Err: err}
	}
	return &SerialLink{port: p}, nil
}

func (l *SerialLink) Write(p []byte) (int, error) { return l.port.Write(p) }

// RecvByte returns a buffered byte, or reads once more until waitMs has
// passed. The device timeout may round the wait up.
func (l *SerialLink) RecvByte(waitMs uint32) (byte, bool) {
	deadline := time.Now().Add(time.Duration(waitMs) * time.Millisecond)
	for {
		if l.head < l.tail {
			b := l.buf[l.head]
			l.head++
			return b, true
		}
		n, err := l.port.Read(l.buf[:])
		l.head, l.tail = 0, n
		if n > 0 {
			continue
		}
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			return 0, false
		}
		if !time.Now().Before(deadline) {
			return 0, false
		}
	}
}

func (l *SerialLink) Close() error { return l.port.Close() }
