// nodesim runs the telemetry node on a host: simulated sensor and actuator,
// reporting over the debug writer or through an ESP-AT modem that is either
// simulated or attached to a serial port.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"powernode-go/platform"
	"powernode-go/services/config"
	"powernode-go/services/espat"
	"powernode-go/services/modemsim"
	"powernode-go/services/node"
	"powernode-go/services/report"
	"powernode-go/x/logx"
	"powernode-go/x/timex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		device     string
		cfgPath    string
		serialPath string
		fault      string
		duration   time.Duration
		logLevel   string
		logJSON    bool
	)
	fs := pflag.NewFlagSet("nodesim", pflag.ContinueOnError)
	fs.StringVar(&device, "device", "pico-sim", "embedded config to start from")
	fs.StringVarP(&cfgPath, "config", "c", "", "YAML overlay for the node config")
	fs.StringVar(&serialPath, "serial", "", "serial device of a real ESP-AT modem (default: simulated modem)")
	fs.StringVar(&fault, "modem-fault", "", "simulated modem fault: join, session, send, silent")
	fs.DurationVar(&duration, "duration", 0, "stop after this long (0: run until interrupted)")
	fs.StringVar(&logLevel, "log-level", "info", "log level")
	fs.BoolVar(&logJSON, "log-json", false, "log JSON records; telemetry lines go to the log too")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	log, closeLog, err := logx.New(logx.Options{Level: logLevel, JSON: logJSON})
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	cfg, err := config.LoadFile(device, cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info("node config",
		zap.String("device", cfg.Device),
		zap.String("sensor", cfg.Sensor),
		zap.String("reporter", cfg.Reporter),
		zap.Uint16("threshold_mw", cfg.ThresholdMw),
	)

	var out io.Writer = os.Stdout
	if logJSON {
		out = logx.LineWriter{Log: log, Msg: "telemetry", Key: "json"}
	}
	debug := report.NewDebugSink(out)

	if cfg.Sensor != config.SensorSim {
		log.Warn("no sensor bus on this host, using the simulated ramp", zap.String("sensor", cfg.Sensor))
	}
	act := &node.PinActuator{SetFn: func(on bool) {
		log.Debug("actuator", zap.Bool("on", on))
	}}

	clk := timex.NewSystem()
	var sender report.Sender = debug
	var wifi *report.WiFi
	if cfg.Reporter == config.ReporterWiFi {
		link, closeLink, err := openLink(serialPath, int(cfg.Modem.Baud), fault)
		if err != nil {
			return err
		}
		defer closeLink()
		c := espat.New(clk, espat.ESPAT, cfg.ModemConfig())
		wifi = report.NewWiFi(c, link, clk, cfg.WiFiConfig(), debug)
		sender = wifi
		log.Info("reporting over wifi",
			zap.String("host", cfg.Server.Host),
			zap.Uint16("port", cfg.Server.Port),
			zap.Bool("simulated_modem", serialPath == ""),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	n := node.New(cfg.NodeConfig(), clk, &node.RampSensor{}, act, sender)
	n.Run(ctx)

	if wifi != nil {
		st := wifi.Stats()
		log.Info("reporter stats",
			zap.Uint32("sent", st.Sent),
			zap.Uint32("fallback", st.Fallback),
			zap.Uint32("bring_up_failures", st.BringUpFailures),
			zap.Uint32("send_failures", st.SendFailures),
			zap.String("last_err", string(st.LastErr)),
			zap.Stringer("modem_state", wifi.State()),
		)
	}
	return nil
}

func openLink(serialPath string, baud int, fault string) (espat.Link, func(), error) {
	if serialPath != "" {
		l, err := platform.OpenSerial(serialPath, baud)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	}
	var f modemsim.Faults
	switch fault {
	case "":
	case "join":
		f.FailJoin = true
	case "session":
		f.FailSession = true
	case "send":
		f.FailSend = true
	case "silent":
		f.Silent = true
	default:
		return nil, nil, fmt.Errorf("unknown modem fault %q", fault)
	}
	f.Echo = true
	f.Reply = true
	p := modemsim.NewPipe(modemsim.New(nil, f), 256, 2*time.Millisecond)
	p.Start()
	return p, p.Close, nil
}
