// Package sched runs a fixed table of periodic tasks off a 32-bit
// millisecond tick.
//
// A task is due when int32(now-next) >= 0, which stays correct across the
// counter wrap. After running, next advances by exactly one period, so the
// long-run rate is kept when a pass is late, but a task that misses several
// periods runs once per pass and does not catch up.
//
// Tasks run in table order, synchronously, to completion. The scheduler does
// not care whether it is driven by a polling loop or a timer callback.
package sched

import (
	"context"

	"powernode-go/x/timex"
)

// Task is one periodic entry.
type Task struct {
	Name          string
	Action        func(now uint32)
	PeriodMs      uint32
	NextReleaseMs uint32
}

type Scheduler struct {
	tasks []Task
}

// New fixes the task table. The slice is copied; the table never grows.
func New(tasks ...Task) *Scheduler {
	t := make([]Task, len(tasks))
	copy(t, tasks)
	return &Scheduler{tasks: t}
}

// Start sets every task's first release to now + period.
func (s *Scheduler) Start(now uint32) {
	for i := range s.tasks {
		s.tasks[i].NextReleaseMs = now + s.tasks[i].PeriodMs
	}
}

// RunPending runs every due task once and returns how many ran.
func (s *Scheduler) RunPending(now uint32) int {
	ran := 0
	for i := range s.tasks {
		t := &s.tasks[i]
		if !timex.Due(now, t.NextReleaseMs) {
			continue
		}
		if t.Action != nil {
			t.Action(now)
		}
		t.NextReleaseMs += t.PeriodMs
		ran++
	}
	return ran
}

// Loop polls the table every idleMs until ctx is cancelled. Cancellation is
// only observed between passes.
func (s *Scheduler) Loop(ctx context.Context, clk timex.Clock, idleMs uint32) {
	if idleMs == 0 {
		idleMs = 1
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.RunPending(clk.Millis())
		clk.Sleep(idleMs)
	}
}

// Tasks returns a copy of the table.
func (s *Scheduler) Tasks() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
