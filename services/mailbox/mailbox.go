// Package mailbox is the single-slot handoff between the control task and
// the report task.
//
// Publish overwrites any unconsumed sample (last write wins, no queueing).
// The fields and the occupancy flag are written as separate plain stores,
// so a reader interleaved with a writer could see a torn sample. That is
// safe here only because the scheduler runs every task on one goroutine to
// completion. Moving producer and consumer onto different goroutines needs
// a lock or an atomic swap around the slot.
package mailbox

import "powernode-go/types"

type Mailbox struct {
	slot types.Sample
	full bool
}

// Publish stores s, replacing any pending sample.
func (m *Mailbox) Publish(s types.Sample) {
	m.slot.TimestampMs = s.TimestampMs
	m.slot.PowerA = s.PowerA
	m.slot.PowerB = s.PowerB
	m.slot.ActuatorOn = s.ActuatorOn
	m.full = true
}

// TryTake returns the pending sample and empties the slot. It never waits;
// on an empty slot it returns false and leaves the mailbox untouched.
func (m *Mailbox) TryTake() (types.Sample, bool) {
	if !m.full {
		return types.Sample{}, false
	}
	s := m.slot
	m.full = false
	return s, true
}

// Pending reports whether a sample is waiting.
func (m *Mailbox) Pending() bool { return m.full }
