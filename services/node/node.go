// Package node wires sensing, threshold control and reporting onto the
// cooperative scheduler.
//
// Data flows sense -> State.Reading -> control -> mailbox -> report. State
// has one writer per field and the scheduler runs tasks one at a time, so no
// locking is needed.
package node

import (
	"context"

	"powernode-go/services/mailbox"
	"powernode-go/services/report"
	"powernode-go/services/sched"
	"powernode-go/types"
	"powernode-go/x/mathx"
	"powernode-go/x/timex"
)

// Sensor returns the latest pair of power readings.
type Sensor interface {
	Read() types.Reading
}

// Actuator drives the load switch.
type Actuator interface {
	Set(on bool)
}

// State is the data shared between tasks.
type State struct {
	Reading    types.Reading
	ActuatorOn bool
}

type Config struct {
	ThresholdMw     uint16 // either channel above this turns the actuator on
	SensePeriodMs   uint32
	ControlPeriodMs uint32
	ReportPeriodMs  uint32
	IdleMs          uint32 // loop sleep between scheduler passes
}

func (c Config) normalized() Config {
	c.ThresholdMw = mathx.Or(c.ThresholdMw, 600)
	c.SensePeriodMs = mathx.Or(c.SensePeriodMs, 1)
	c.ControlPeriodMs = mathx.Or(c.ControlPeriodMs, 10)
	c.ReportPeriodMs = mathx.Or(c.ReportPeriodMs, 500)
	c.IdleMs = mathx.Or(c.IdleMs, 1)
	return c
}

type Node struct {
	cfg      Config
	clk      timex.Clock
	sensor   Sensor
	actuator Actuator
	sender   report.Sender

	state State
	mbox  mailbox.Mailbox
	sched *sched.Scheduler

	failing bool
}

// New builds the three tasks in sense, control, report order.
func New(cfg Config, clk timex.Clock, sensor Sensor, actuator Actuator, sender report.Sender) *Node {
	n := &Node{
		cfg:      cfg.normalized(),
		clk:      clk,
		sensor:   sensor,
		actuator: actuator,
		sender:   sender,
	}
	n.sched = sched.New(
		sched.Task{Name: "sense", Action: n.sense, PeriodMs: n.cfg.SensePeriodMs},
		sched.Task{Name: "control", Action: n.control, PeriodMs: n.cfg.ControlPeriodMs},
		sched.Task{Name: "report", Action: n.report, PeriodMs: n.cfg.ReportPeriodMs},
	)
	return n
}

// Run drives the scheduler until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	println("Info: node running, threshold", n.cfg.ThresholdMw, "mW")
	n.sched.Start(n.clk.Millis())
	n.sched.Loop(ctx, n.clk, n.cfg.IdleMs)
	n.actuator.Set(false)
	println("Info: node stopped")
}

// Start arms the task table at now without entering the loop.
func (n *Node) Start(now uint32) { n.sched.Start(now) }

// Step runs one scheduler pass at now.
func (n *Node) Step(now uint32) int { return n.sched.RunPending(now) }

// State returns a copy of the shared task state.
func (n *Node) State() State { return n.state }

// Tasks returns the task table.
func (n *Node) Tasks() []sched.Task { return n.sched.Tasks() }

func (n *Node) sense(uint32) {
	n.state.Reading = n.sensor.Read()
}

func (n *Node) control(now uint32) {
	r := n.state.Reading
	on := r.A > n.cfg.ThresholdMw || r.B > n.cfg.ThresholdMw
	n.actuator.Set(on)
	n.state.ActuatorOn = on
	n.mbox.Publish(types.Sample{TimestampMs: now, PowerA: r.A, PowerB: r.B, ActuatorOn: on})
}

func (n *Node) report(uint32) {
	s, ok := n.mbox.TryTake()
	if !ok {
		return
	}
	err := n.sender.Send(s)
	switch {
	case err != nil && !n.failing:
		n.failing = true
		println("Warn: report failed:", err.Error())
	case err == nil && n.failing:
		n.failing = false
		println("Info: report recovered")
	}
}
