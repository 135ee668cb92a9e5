package report

import (
	"powernode-go/errcode"
	"powernode-go/services/espat"
	"powernode-go/types"
	"powernode-go/x/mathx"
	"powernode-go/x/timex"
)

// WiFiConfig names the network and the collector endpoint.
type WiFiConfig struct {
	SSID     string
	Password string
	Host     string
	Port     uint16
	Path     string

	RetryBackoffMs uint32 // quiet period after a failed bring-up
}

// Stats counts reporter outcomes.
type Stats struct {
	Sent            uint32
	Fallback        uint32
	BringUpFailures uint32
	SendFailures    uint32
	LastErr         errcode.Code
}

// WiFi posts samples through the modem and hands them to the fallback
// whenever the modem path fails.
type WiFi struct {
	c        *espat.Client
	link     espat.Link
	clk      timex.Clock
	cfg      WiFiConfig
	fallback Sender

	bound   bool
	reopen  bool
	waiting bool
	retryAt uint32

	buf   [96]byte
	stats Stats
}

// NewWiFi binds the client to link on first use. fallback may be nil, in
// which case modem failures are returned to the caller.
func NewWiFi(c *espat.Client, link espat.Link, clk timex.Clock, cfg WiFiConfig, fallback Sender) *WiFi {
	cfg.RetryBackoffMs = mathx.Or(cfg.RetryBackoffMs, 10000)
	cfg.Path = mathx.Or(cfg.Path, "/api/energy")
	return &WiFi{c: c, link: link, clk: clk, cfg: cfg, fallback: fallback}
}

func (w *WiFi) Send(s types.Sample) error {
	if w.waiting && !timex.Due(w.clk.Millis(), w.retryAt) {
		return w.fall(s, errcode.Busy)
	}
	if err := w.bringUp(); err != nil {
		w.stats.BringUpFailures++
		w.waiting = true
		w.retryAt = w.clk.Millis() + w.cfg.RetryBackoffMs
		return w.fall(s, err)
	}
	w.waiting = false

	b, err := Encode(w.buf[:], s)
	if err != nil {
		return w.fall(s, err)
	}
	if err := w.c.SendRequest(w.cfg.Path, b); err != nil {
		w.stats.SendFailures++
		_ = w.c.CloseSession()
		w.reopen = true
		return w.fall(s, err)
	}
	w.stats.Sent++
	return nil
}

// Stats returns a snapshot of the counters.
func (w *WiFi) Stats() Stats { return w.stats }

// State reports the modem connection state.
func (w *WiFi) State() espat.State { return w.c.State() }

func (w *WiFi) bringUp() error {
	if !w.bound {
		if err := w.c.Init(w.link); err != nil {
			return err
		}
		w.bound = true
	}
	if w.c.State() == espat.Error {
		if err := w.c.Reset(); err != nil {
			return err
		}
	}
	if w.c.State() < espat.LinkConnected {
		if err := w.c.JoinNetwork(w.cfg.SSID, w.cfg.Password); err != nil {
			return err
		}
	}
	if w.reopen || w.c.State() != espat.SessionConnected {
		if err := w.c.ConnectSession(w.cfg.Host, w.cfg.Port); err != nil {
			return err
		}
		w.reopen = false
	}
	return nil
}

func (w *WiFi) fall(s types.Sample, cause error) error {
	w.stats.LastErr = errcode.Of(cause)
	if w.fallback == nil {
		return cause
	}
	w.stats.Fallback++
	return w.fallback.Send(s)
}
