// Package config resolves per-device node configuration from embedded JSON
// documents, with a YAML file overlay on hosts.
package config

import (
	"bytes"
	"encoding/json"

	"powernode-go/errcode"
	"powernode-go/services/espat"
	"powernode-go/services/node"
	"powernode-go/services/report"
	"powernode-go/x/mathx"
)

const (
	SensorINA219 = "ina219"
	SensorSim    = "sim"

	ReporterDebug = "debug"
	ReporterWiFi  = "wifi"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Node is the full configuration of one telemetry node.
type Node struct {
	Device      string  `json:"device" yaml:"device"`
	Sensor      string  `json:"sensor" yaml:"sensor"`
	Reporter    string  `json:"reporter" yaml:"reporter"`
	ThresholdMw uint16  `json:"threshold_mw" yaml:"threshold_mw"`
	Periods     Periods `json:"periods" yaml:"periods"`
	WiFi        WiFi    `json:"wifi" yaml:"wifi"`
	Server      Server  `json:"server" yaml:"server"`
	Modem       Modem   `json:"modem" yaml:"modem"`
}

type Periods struct {
	SenseMs   uint32 `json:"sense_ms" yaml:"sense_ms"`
	ControlMs uint32 `json:"control_ms" yaml:"control_ms"`
	ReportMs  uint32 `json:"report_ms" yaml:"report_ms"`
}

type WiFi struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password" yaml:"password"`
}

type Server struct {
	Host string `json:"host" yaml:"host"`
	Port uint16 `json:"port" yaml:"port"`
	Path string `json:"path" yaml:"path"`
}

// Modem tunes the modem client. Zero values take the client defaults.
type Modem struct {
	Baud             uint32 `json:"baud" yaml:"baud"`
	CommandTimeoutMs uint32 `json:"command_timeout_ms" yaml:"command_timeout_ms"`
	JoinTimeoutMs    uint32 `json:"join_timeout_ms" yaml:"join_timeout_ms"`
	ResetTimeoutMs   uint32 `json:"reset_timeout_ms" yaml:"reset_timeout_ms"`
	RetryBackoffMs   uint32 `json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	RxBufferSize     int    `json:"rx_buffer_size" yaml:"rx_buffer_size"`
	TxBufferSize     int    `json:"tx_buffer_size" yaml:"tx_buffer_size"`
}

// Decode parses a JSON document. Unknown fields are rejected.
func Decode(raw []byte) (Node, error) {
	var n Node
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&n); err != nil {
		return Node{}, &errcode.E{C: errcode.InvalidParams, Op: "config.decode", Err: err, Msg: err.Error()}
	}
	return n, nil
}

// Load resolves the embedded config for device, fills defaults and
// validates it.
func Load(device string) (Node, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Node{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "no embedded config for device: " + device}
	}
	n, err := Decode(raw)
	if err != nil {
		return Node{}, err
	}
	if n.Device == "" {
		n.Device = device
	}
	n.Normalize()
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// Normalize fills defaults in place.
func (n *Node) Normalize() {
	n.Sensor = mathx.Or(n.Sensor, SensorSim)
	n.Reporter = mathx.Or(n.Reporter, ReporterDebug)
	n.ThresholdMw = mathx.Or(n.ThresholdMw, 600)
	n.Periods.SenseMs = mathx.Or(n.Periods.SenseMs, 1)
	n.Periods.ControlMs = mathx.Or(n.Periods.ControlMs, 10)
	n.Periods.ReportMs = mathx.Or(n.Periods.ReportMs, 500)
	n.Server.Port = mathx.Or(n.Server.Port, 80)
	n.Server.Path = mathx.Or(n.Server.Path, "/api/energy")
	n.Modem.Baud = mathx.Or(n.Modem.Baud, 115200)
	n.Modem.RetryBackoffMs = mathx.Or(n.Modem.RetryBackoffMs, 10000)
	// The client frames a request in a fixed buffer; keep it sane.
	if n.Modem.TxBufferSize != 0 {
		n.Modem.TxBufferSize = mathx.Clamp(n.Modem.TxBufferSize, 128, 4096)
	}
	if n.Modem.RxBufferSize != 0 {
		n.Modem.RxBufferSize = mathx.Clamp(n.Modem.RxBufferSize, 64, 4096)
	}
}

// Validate checks a normalized config. It does not mutate it.
func (n *Node) Validate() error {
	bad := func(msg string) error {
		return errcode.Wrap(errcode.InvalidParams, "config.validate", msg)
	}
	switch n.Sensor {
	case SensorINA219, SensorSim:
	default:
		return bad("unknown sensor: " + n.Sensor)
	}
	switch n.Reporter {
	case ReporterDebug:
	case ReporterWiFi:
		if n.WiFi.SSID == "" {
			return bad("wifi reporter needs wifi.ssid")
		}
		if n.Server.Host == "" {
			return bad("wifi reporter needs server.host")
		}
	default:
		return bad("unknown reporter: " + n.Reporter)
	}
	if !clean(n.WiFi.SSID) || !clean(n.WiFi.Password) || !clean(n.Server.Host) {
		return bad("control characters in wifi or server settings")
	}
	if n.Server.Path == "" || n.Server.Path[0] != '/' {
		return bad("server.path must start with /")
	}
	if n.Periods.ControlMs < n.Periods.SenseMs {
		return bad("control period shorter than sense period")
	}
	return nil
}

func clean(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return false
		}
	}
	return true
}

// NodeConfig maps the task settings.
func (n *Node) NodeConfig() node.Config {
	return node.Config{
		ThresholdMw:     n.ThresholdMw,
		SensePeriodMs:   n.Periods.SenseMs,
		ControlPeriodMs: n.Periods.ControlMs,
		ReportPeriodMs:  n.Periods.ReportMs,
	}
}

// ModemConfig maps the modem client settings.
func (n *Node) ModemConfig() espat.Config {
	return espat.Config{
		RxBufferSize:     n.Modem.RxBufferSize,
		TxBufferSize:     n.Modem.TxBufferSize,
		CommandTimeoutMs: n.Modem.CommandTimeoutMs,
		JoinTimeoutMs:    n.Modem.JoinTimeoutMs,
		ResetTimeoutMs:   n.Modem.ResetTimeoutMs,
	}
}

// WiFiConfig maps the reporter settings.
func (n *Node) WiFiConfig() report.WiFiConfig {
	return report.WiFiConfig{
		SSID:           n.WiFi.SSID,
		Password:       n.WiFi.Password,
		Host:           n.Server.Host,
		Port:           n.Server.Port,
		Path:           n.Server.Path,
		RetryBackoffMs: n.Modem.RetryBackoffMs,
	}
}
