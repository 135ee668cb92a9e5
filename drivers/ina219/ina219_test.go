package ina219

import (
	"errors"
	"testing"
)

type fakeI2C struct {
	regs   map[uint16]map[byte]uint16
	writes [][]byte
	fail   bool
}

func (f *fakeI2C) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return f.Tx(uint16(addr), []byte{r}, buf)
}

func (f *fakeI2C) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return f.Tx(uint16(addr), append([]byte{r}, buf...), nil)
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if f.fail {
		return errors.New("nack")
	}
	f.writes = append(f.writes, append([]byte(nil), w...))
	if len(r) == 2 {
		v := f.regs[addr][w[0]]
		r[0], r[1] = byte(v>>8), byte(v)
	}
	return nil
}

func TestPowerMilliwatts(t *testing.T) {
	cases := []struct {
		shunt int16
		bus   uint16
		want  uint16
	}{
		{0, 0, 0},
		{5000, 12000 / 4 << 3, 6000},  // 500 mA at 12 V
		{-5000, 12000 / 4 << 3, 6000}, // reverse current counts as magnitude
		{9, 5000 / 4 << 3, 0},         // below 1 mA
		{-32768, 0xFFF8, 0xFFFF},      // clamped
		{1000, 3300 / 4 << 3, 330},
	}
	for _, tc := range cases {
		if got := PowerMilliwatts(tc.shunt, tc.bus); got != tc.want {
			t.Errorf("PowerMilliwatts(%d, %#x)=%d want %d", tc.shunt, tc.bus, got, tc.want)
		}
	}
}

func TestDeviceReadsBigEndianRegisters(t *testing.T) {
	bus := &fakeI2C{regs: map[uint16]map[byte]uint16{
		AddressB: {regShunt: 5000, regBus: 12000 / 4 << 3},
	}}
	d := New(bus, AddressB)
	if err := d.Configure(0); err != nil {
		t.Fatal(err)
	}
	if w := bus.writes[0]; len(w) != 3 || w[0] != regConfig || w[1] != 0x39 || w[2] != 0x9F {
		t.Fatalf("config write % x", w)
	}
	mw, err := d.ReadPowerMilliwatts()
	if err != nil || mw != 6000 {
		t.Fatalf("mw=%d err=%v", mw, err)
	}
}

func TestDeviceBusError(t *testing.T) {
	d := New(&fakeI2C{fail: true}, AddressA)
	if err := d.Configure(0); !errors.Is(err, ErrBus) {
		t.Fatalf("Configure err=%v", err)
	}
	if mw, err := d.ReadPowerMilliwatts(); !errors.Is(err, ErrBus) || mw != 0 {
		t.Fatalf("mw=%d err=%v", mw, err)
	}
}
