// Package ina219 provides a minimal driver for the TI INA219 current and
// power monitor, reading power in integer milliwatts.
//
// Power is derived from the shunt and bus voltage registers rather than the
// on-chip power register, so no calibration value is needed:
//
//	mA    = |shunt| / 10      (10 uV per LSB over a 0.1 ohm shunt)
//	busmV = (bus >> 3) * 4    (4 mV per LSB)
//	mW    = busmV * mA / 1000
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided.
package ina219

import (
	"errors"

	"tinygo.org/x/drivers"

	"powernode-go/x/mathx"
)

// Common strap addresses.
const (
	AddressA = 0x40
	AddressB = 0x41
)

const (
	regConfig = 0x00
	regShunt  = 0x01
	regBus    = 0x02

	// 32 V range, /8 gain, 12-bit ADCs, continuous shunt and bus.
	DefaultConfig = 0x399F
)

var ErrBus = errors.New("ina219: bus error")

// Device is one INA219 on a shared bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	w [3]byte
	r [2]byte
}

// New returns a Device at addr. It does not touch the hardware.
func New(bus drivers.I2C, addr uint16) *Device {
	return &Device{bus: bus, Address: addr}
}

// Configure writes the configuration register. A zero word selects
// DefaultConfig.
func (d *Device) Configure(word uint16) error {
	if word == 0 {
		word = DefaultConfig
	}
	d.w[0] = regConfig
	d.w[1] = byte(word >> 8)
	d.w[2] = byte(word)
	if err := d.bus.Tx(d.Address, d.w[:3], nil); err != nil {
		return ErrBus
	}
	return nil
}

func (d *Device) read16(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:2]); err != nil {
		return 0, ErrBus
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

// ReadRaw returns the signed shunt register and the raw bus register.
func (d *Device) ReadRaw() (shunt int16, bus uint16, err error) {
	s, err := d.read16(regShunt)
	if err != nil {
		return 0, 0, err
	}
	b, err := d.read16(regBus)
	if err != nil {
		return 0, 0, err
	}
	return int16(s), b, nil
}

// ReadPowerMilliwatts reads both registers and returns power clamped to
// 0xFFFF mW.
func (d *Device) ReadPowerMilliwatts() (uint16, error) {
	shunt, bus, err := d.ReadRaw()
	if err != nil {
		return 0, err
	}
	return PowerMilliwatts(shunt, bus), nil
}

// PowerMilliwatts converts raw register values to milliwatts.
func PowerMilliwatts(shunt int16, bus uint16) uint16 {
	mA := uint32(mathx.Abs(int32(shunt))) / 10
	busmV := uint32(bus>>3) * 4
	return mathx.SatU16(busmV * mA / 1000)
}
