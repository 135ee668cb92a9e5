package timex

import (
	"math"
	"testing"
)

func TestDueAcrossWrap(t *testing.T) {
	cases := []struct {
		now, deadline uint32
		want          bool
	}{
		{100, 100, true},
		{99, 100, false},
		{5, math.MaxUint32 - 2, true},
		{math.MaxUint32 - 2, 5, false},
		{0, math.MaxUint32, true},
	}
	for _, c := range cases {
		if got := Due(c.now, c.deadline); got != c.want {
			t.Errorf("Due(%d,%d) = %v, want %v", c.now, c.deadline, got, c.want)
		}
	}
}

func TestElapsedAcrossWrap(t *testing.T) {
	if got := Elapsed(math.MaxUint32-4, 5); got != 10 {
		t.Fatalf("Elapsed = %d, want 10", got)
	}
}

func TestManualSleepAdvances(t *testing.T) {
	m := NewManual(math.MaxUint32)
	m.Sleep(2)
	if m.Millis() != 1 {
		t.Fatalf("Millis = %d, want 1", m.Millis())
	}
}
