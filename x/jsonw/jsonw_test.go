package jsonw

import (
	"bytes"
	"math"
	"testing"

	"powernode-go/errcode"
)

const sampleJSON = `{"t":12345,"pA":600,"pB":250,"fan":true}`

func writeSample(w *Writer, buf []byte) error {
	w.Begin(buf)
	if err := w.AddUint("t", 12345); err != nil {
		return err
	}
	if err := w.AddUint("pA", 600); err != nil {
		return err
	}
	if err := w.AddUint("pB", 250); err != nil {
		return err
	}
	if err := w.AddBool("fan", true); err != nil {
		return err
	}
	w.End()
	return nil
}

func TestSampleObjectExact(t *testing.T) {
	var w Writer
	buf := make([]byte, 64)
	if err := writeSample(&w, buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := string(w.Bytes()); got != sampleJSON {
		t.Fatalf("got %q, want %q", got, sampleJSON)
	}
	if w.Len() != len(sampleJSON) {
		t.Fatalf("Len = %d, want %d", w.Len(), len(sampleJSON))
	}
	if buf[w.Len()] != 0 {
		t.Fatalf("missing terminator, got %q", buf[w.Len()])
	}
}

func TestExactFitAndOneShort(t *testing.T) {
	need := len(sampleJSON) + 1 // terminator included

	var w Writer
	if err := writeSample(&w, make([]byte, need)); err != nil {
		t.Fatalf("exact fit failed: %v", err)
	}
	if string(w.Bytes()) != sampleJSON {
		t.Fatalf("exact fit got %q", w.Bytes())
	}

	// One byte short: the last field must fail and nothing may land past
	// the buffer. A guard byte after the slice catches out-of-bounds writes.
	backing := bytes.Repeat([]byte{0xEE}, need)
	short := backing[:need-1]

	w.Begin(short)
	for _, k := range []string{"t", "pA", "pB"} {
		v := map[string]uint32{"t": 12345, "pA": 600, "pB": 250}[k]
		if err := w.AddUint(k, v); err != nil {
			t.Fatalf("AddUint(%s) failed early: %v", k, err)
		}
	}
	if err := w.AddBool("fan", true); !errcode.Is(err, errcode.Overflow) {
		t.Fatalf("AddBool on short buffer: err = %v, want overflow", err)
	}
	if backing[need-1] != 0xEE {
		t.Fatal("write past buffer bound")
	}
	w.End()
	if got := string(w.Bytes()); got != `{"t":12345,"pA":600,"pB":250}` {
		t.Fatalf("after rollback got %q", got)
	}
}

func TestStickyOverflow(t *testing.T) {
	var w Writer
	w.Begin(make([]byte, 8))
	if err := w.AddUint("long_key", 1); err == nil {
		t.Fatal("expected overflow")
	}
	if err := w.AddBool("b", true); !errcode.Is(err, errcode.Overflow) {
		t.Fatalf("second add: err = %v, want sticky overflow", err)
	}
	w.End()
	if got := string(w.Bytes()); got != "{}" {
		t.Fatalf("got %q, want {}", got)
	}
	if w.Err() == nil {
		t.Fatal("Err() lost the overflow")
	}
}

func TestIntegerExtremes(t *testing.T) {
	want := `{"min":-2147483648,"max":4294967295,"neg":-7,"zero":0,"off":false}`
	var w Writer
	buf := make([]byte, len(want)+1)
	w.Begin(buf)
	if err := w.AddInt("min", math.MinInt32); err != nil {
		t.Fatal(err)
	}
	if err := w.AddUint("max", math.MaxUint32); err != nil {
		t.Fatal(err)
	}
	if err := w.AddInt("neg", -7); err != nil {
		t.Fatal(err)
	}
	if err := w.AddInt("zero", 0); err != nil {
		t.Fatal(err)
	}
	if err := w.AddBool("off", false); err != nil {
		t.Fatal(err)
	}
	w.End()
	if got := string(w.Bytes()); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEmptyAndTinyBuffers(t *testing.T) {
	var w Writer
	w.Begin(nil)
	if err := w.AddUint("t", 1); err == nil {
		t.Fatal("add into nil buffer succeeded")
	}
	w.End()
	if w.Len() != 0 {
		t.Fatalf("Len = %d, want 0", w.Len())
	}

	one := make([]byte, 1)
	w.Begin(one)
	w.End()
	if string(w.Bytes()) != "{" {
		t.Fatalf("1-byte buffer got %q", w.Bytes())
	}
}

func TestBeginResets(t *testing.T) {
	var w Writer
	buf := make([]byte, 32)
	w.Begin(buf)
	_ = w.AddUint("a", 1)
	w.End()
	w.Begin(buf)
	_ = w.AddUint("b", 2)
	w.End()
	if got := string(w.Bytes()); got != `{"b":2}` {
		t.Fatalf("got %q", got)
	}
}
