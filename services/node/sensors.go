package node

import (
	"powernode-go/drivers/ina219"
	"powernode-go/types"
)

// RampSensor is a simulated source: A climbs 0..995 in steps of 5 and B
// mirrors it as 1000-A.
type RampSensor struct {
	x uint16
}

func (s *RampSensor) Read() types.Reading {
	s.x = (s.x + 5) % 1000
	return types.Reading{A: s.x, B: 1000 - s.x}
}

// PowerMeter reads milliwatts from one device.
type PowerMeter interface {
	ReadPowerMilliwatts() (uint16, error)
}

// PairSensor reads two meters. A meter that fails to read reports 0.
type PairSensor struct {
	A, B PowerMeter
}

// NewINA219Pair configures both devices and returns them as a sensor. A
// configure failure is returned but the sensor is still usable.
func NewINA219Pair(a, b *ina219.Device) (*PairSensor, error) {
	errA := a.Configure(0)
	errB := b.Configure(0)
	if errA != nil {
		return &PairSensor{A: a, B: b}, errA
	}
	return &PairSensor{A: a, B: b}, errB
}

func (s *PairSensor) Read() types.Reading {
	return types.Reading{A: meter(s.A), B: meter(s.B)}
}

func meter(m PowerMeter) uint16 {
	mw, err := m.ReadPowerMilliwatts()
	if err != nil {
		return 0
	}
	return mw
}

// PinActuator drives an output through a setter, such as machine.Pin.Set.
type PinActuator struct {
	SetFn func(high bool)
	on    bool
}

func (p *PinActuator) Set(on bool) {
	p.on = on
	if p.SetFn != nil {
		p.SetFn(on)
	}
}

// On reports the last commanded level.
func (p *PinActuator) On() bool { return p.on }
