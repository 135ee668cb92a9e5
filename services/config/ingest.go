package config

import (
	"powernode-go/errcode"
	"powernode-go/x/mathx"
)

// Ingest configures the collector server.
type Ingest struct {
	Listen          string `json:"listen" yaml:"listen"`
	ThresholdMw     uint16 `json:"threshold_mw" yaml:"threshold_mw"`
	TotalLimitMw    uint32 `json:"total_limit_mw" yaml:"total_limit_mw"`
	MaxGapMs        uint32 `json:"max_gap_ms" yaml:"max_gap_ms"`
	PingIntervalSec uint32 `json:"ping_interval_s" yaml:"ping_interval_s"`
	Log             Log    `json:"log" yaml:"log"`
}

// Log selects structured log output. An empty File means stderr.
type Log struct {
	Level      string `json:"level" yaml:"level"`
	JSON       bool   `json:"json" yaml:"json"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

func (c *Ingest) Normalize() {
	c.Listen = mathx.Or(c.Listen, ":3000")
	c.ThresholdMw = mathx.Or(c.ThresholdMw, 600)
	c.TotalLimitMw = mathx.Or(c.TotalLimitMw, 1200)
	c.MaxGapMs = mathx.Or(c.MaxGapMs, 10000)
	c.PingIntervalSec = mathx.Or(c.PingIntervalSec, 20)
	c.Log.Level = mathx.Or(c.Log.Level, "info")
	c.Log.MaxSizeMB = mathx.Or(c.Log.MaxSizeMB, 10)
	c.Log.MaxBackups = mathx.Or(c.Log.MaxBackups, 3)
	c.Log.MaxAgeDays = mathx.Or(c.Log.MaxAgeDays, 28)
}

func (c *Ingest) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "unknown log level: " + c.Log.Level}
	}
	if uint32(c.ThresholdMw) > c.TotalLimitMw {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "threshold_mw above total_limit_mw"}
	}
	return nil
}
