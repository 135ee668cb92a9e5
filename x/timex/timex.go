package timex

import "time"

// Clock is the monotonic millisecond tick used by the scheduler and the
// modem client. The counter is 32 bits wide and wraps.
type Clock interface {
	Millis() uint32
	Sleep(ms uint32)
}

// Elapsed returns now-start across a counter wrap.
func Elapsed(start, now uint32) uint32 { return now - start }

// Due reports whether deadline has been reached at now. The unsigned
// difference is read as signed, so the test holds across the wrap as long
// as the two values are within 2^31 ms of each other.
func Due(now, deadline uint32) bool { return int32(now-deadline) >= 0 }

// System is the process clock. Its tick starts at zero when constructed.
type System struct{ start time.Time }

func NewSystem() *System { return &System{start: time.Now()} }

func (s *System) Millis() uint32 { return uint32(time.Since(s.start).Milliseconds()) }

func (s *System) Sleep(ms uint32) { time.Sleep(time.Duration(ms) * time.Millisecond) }

// Manual is a clock that only moves when told to. Sleep advances it, so
// time-bounded loops run instantly and deterministically.
type Manual struct {
	now uint32
}

func NewManual(start uint32) *Manual { return &Manual{now: start} }

func (m *Manual) Millis() uint32    { return m.now }
func (m *Manual) Sleep(ms uint32)   { m.now += ms }
func (m *Manual) Advance(ms uint32) { m.now += ms }
func (m *Manual) Set(now uint32)    { m.now = now }
