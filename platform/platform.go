// Package platform brings up the board resources the node runs on: the
// modem byte link, the debug writer, the sensor bus and the actuator pin.
//
// The RP2040 build uses uartx and machine; host builds open a serial device
// through goburrow/serial.
package platform

import "powernode-go/services/espat"

var (
	_ espat.Link = (*SerialLink)(nil)
)
