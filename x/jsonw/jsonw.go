// Package jsonw writes one flat JSON object into a caller-owned buffer.
//
// The writer never allocates and never writes past len(buf). Every field
// write keeps two bytes in reserve for the closing brace and the NUL
// terminator, so End always fits after a successful field. A failed field
// is rolled back to where it started and the error is sticky: later Add
// calls fail immediately, End still closes the object.
//
// Keys are written verbatim and must not need escaping.
package jsonw

import (
	"powernode-go/errcode"
	"powernode-go/x/conv"
)

// reserve is the tail kept free for '}' and the terminator.
const reserve = 2

type Writer struct {
	buf   []byte
	off   int
	first bool
	err   error
}

// Begin resets w onto buf and writes the opening brace when there is room.
func (w *Writer) Begin(buf []byte) {
	w.buf = buf
	w.off = 0
	w.first = true
	w.err = nil
	if len(buf) == 0 {
		w.err = errcode.Overflow
		return
	}
	w.buf[0] = '{'
	w.off = 1
}

func (w *Writer) AddInt(key string, v int32) error {
	var tmp [11]byte // "-2147483648"
	return w.field(key, conv.Itoa(tmp[:], int64(v)))
}

func (w *Writer) AddUint(key string, v uint32) error {
	var tmp [10]byte // "4294967295"
	return w.field(key, conv.Utoa(tmp[:], uint64(v)))
}

func (w *Writer) AddBool(key string, v bool) error {
	if v {
		return w.field(key, litTrue)
	}
	return w.field(key, litFalse)
}

var (
	litTrue  = []byte("true")
	litFalse = []byte("false")
)

// End appends the closing brace and a NUL terminator, each only if it fits.
func (w *Writer) End() {
	if w.off < len(w.buf) {
		w.buf[w.off] = '}'
		w.off++
	}
	if w.off < len(w.buf) {
		w.buf[w.off] = 0
	}
}

// Len is the number of meaningful bytes written, terminator excluded.
func (w *Writer) Len() int { return w.off }

// Bytes returns the meaningful bytes.
func (w *Writer) Bytes() []byte { return w.buf[:w.off] }

// Err returns the first overflow seen since Begin.
func (w *Writer) Err() error { return w.err }

func (w *Writer) field(key string, val []byte) error {
	if w.err != nil {
		return w.err
	}
	mark := w.off
	ok := true
	if !w.first {
		ok = w.putByte(',')
	}
	ok = ok && w.putByte('"') && w.putString(key) && w.putByte('"') && w.putByte(':')
	ok = ok && len(val) > 0 && w.putBytes(val)
	if !ok {
		w.off = mark
		w.err = errcode.Overflow
		return w.err
	}
	w.first = false
	return nil
}

func (w *Writer) fits(n int) bool { return w.off+n+reserve <= len(w.buf) }

func (w *Writer) putByte(c byte) bool {
	if !w.fits(1) {
		return false
	}
	w.buf[w.off] = c
	w.off++
	return true
}

func (w *Writer) putString(s string) bool {
	if !w.fits(len(s)) {
		return false
	}
	w.off += copy(w.buf[w.off:], s)
	return true
}

func (w *Writer) putBytes(p []byte) bool {
	if !w.fits(len(p)) {
		return false
	}
	w.off += copy(w.buf[w.off:], p)
	return true
}
