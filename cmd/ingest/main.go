// ingest is the collector the telemetry nodes post to. It serves the
// latest reading, daily energy and a live websocket feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"powernode-go/services/config"
	"powernode-go/services/ingest"
	"powernode-go/x/logx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath string
		listen  string
		logFile string
		logJSON bool
		level   string
	)
	fs := pflag.NewFlagSet("ingest", pflag.ContinueOnError)
	fs.StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	fs.StringVar(&listen, "listen", "", "listen address (overrides config)")
	fs.StringVar(&logFile, "log-file", "", "rotate logs into this file (overrides config)")
	fs.BoolVar(&logJSON, "log-json", false, "log JSON records")
	fs.StringVar(&level, "log-level", "", "log level (overrides config)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.LoadIngestFile(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if level != "" {
		cfg.Log.Level = level
	}
	if fs.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}

	log, closeLog, err := logx.New(logx.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	log.Info("starting ingest",
		zap.String("listen", cfg.Listen),
		zap.Uint16("threshold_mw", cfg.ThresholdMw),
		zap.Uint32("total_limit_mw", cfg.TotalLimitMw),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ingest.New(cfg, log).Run(ctx)
}
