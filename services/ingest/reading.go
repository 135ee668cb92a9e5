package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Reading is the latest accepted sample from a node.
type Reading struct {
	T          uint32    `json:"t"`
	PA         uint32    `json:"pA"`
	PB         uint32    `json:"pB"`
	Fan        bool      `json:"fan"`
	ReceivedAt time.Time `json:"received_at"`
}

type wireReading struct {
	T   uint32   `json:"t"`
	PA  uint32   `json:"pA"`
	PB  uint32   `json:"pB"`
	Fan flexBool `json:"fan"`
}

// flexBool accepts true, 1, "true" and "1" as true; anything else is false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(p []byte) error {
	switch string(bytes.TrimSpace(p)) {
	case "true", "1", `"true"`, `"1"`:
		*b = true
	default:
		*b = false
	}
	return nil
}

var errEmptyBody = errors.New("empty body")

func decodeReading(p []byte) (Reading, error) {
	if len(bytes.TrimSpace(p)) == 0 {
		return Reading{}, errEmptyBody
	}
	var w wireReading
	if err := json.Unmarshal(p, &w); err != nil {
		return Reading{}, err
	}
	return Reading{T: w.T, PA: w.PA, PB: w.PB, Fan: bool(w.Fan)}, nil
}
