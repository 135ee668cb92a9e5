package types

// Reading is one pair of power samples in milliwatts.
// A channel whose sensor could not be read reports 0.
type Reading struct {
	A uint16 `json:"pA"`
	B uint16 `json:"pB"`
}

// Sample is the snapshot handed from control to reporting.
type Sample struct {
	TimestampMs uint32 `json:"t"`   // monotonic ms, wraps
	PowerA      uint16 `json:"pA"`  // mW
	PowerB      uint16 `json:"pB"`  // mW
	ActuatorOn  bool   `json:"fan"` // actuator command at sample time
}

// Payload field keys, shared by the node serializer and the ingest server.
const (
	KeyTimestamp = "t"
	KeyPowerA    = "pA"
	KeyPowerB    = "pB"
	KeyActuator  = "fan"
)
