//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// Pins for the reference board.
const (
	ModemTX   = 4 // UART1
	ModemRX   = 5
	DebugTX   = 0 // UART0
	DebugRX   = 1
	SensorSDA = 8 // I2C0
	SensorSCL = 9
	FanPin    = 15
)

type BoardConfig struct {
	ModemBaud uint32
	DebugBaud uint32
	I2CHz     uint32
}

// Board is the set of configured resources.
type Board struct {
	Modem *SerialLink
	Debug *uartx.UART
	I2C   drivers.I2C
	fan   machine.Pin
}

// Setup configures every peripheral once. It never allocates afterwards.
func Setup(cfg BoardConfig) *Board {
	if cfg.ModemBaud == 0 {
		cfg.ModemBaud = 115200
	}
	if cfg.DebugBaud == 0 {
		cfg.DebugBaud = 115200
	}
	if cfg.I2CHz == 0 {
		cfg.I2CHz = 400 * machine.KHz
	}

	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: cfg.DebugBaud,
		TX:       machine.Pin(DebugTX),
		RX:       machine.Pin(DebugRX),
	})
	_ = uartx.UART1.Configure(uartx.UARTConfig{
		BaudRate: cfg.ModemBaud,
		TX:       machine.Pin(ModemTX),
		RX:       machine.Pin(ModemRX),
	})
	_ = machine.I2C0.Configure(machine.I2CConfig{
		Frequency: cfg.I2CHz,
		SDA:       machine.Pin(SensorSDA),
		SCL:       machine.Pin(SensorSCL),
	})

	fan := machine.Pin(FanPin)
	fan.Configure(machine.PinConfig{Mode: machine.PinOutput})
	fan.Low()

	return &Board{
		Modem: &SerialLink{u: uartx.UART1, t: time.NewTimer(time.Hour)},
		Debug: uartx.UART0,
		I2C:   machine.I2C0,
		fan:   fan,
	}
}

// SetFan drives the actuator output.
func (b *Board) SetFan(on bool) { b.fan.Set(on) }

// SerialLink is the modem link over a uartx port. The timer is reused so a
// wait does not allocate.
type SerialLink struct {
	u   *uartx.UART
	t   *time.Timer
	one [1]byte
}

func (l *SerialLink) Write(p []byte) (int, error) { return l.u.Write(p) }

func (l *SerialLink) RecvByte(waitMs uint32) (byte, bool) {
	if b, ok := l.take(); ok {
		return b, true
	}
	if waitMs == 0 {
		return 0, false
	}
	l.t.Reset(time.Duration(waitMs) * time.Millisecond)
	select {
	case <-l.u.Readable():
	case <-l.t.C:
	}
	l.t.Stop()
	return l.take()
}

func (l *SerialLink) take() (byte, bool) {
	if l.u.Buffered() == 0 {
		return 0, false
	}
	if n, _ := l.u.Read(l.one[:]); n == 1 {
		return l.one[0], true
	}
	return 0, false
}
