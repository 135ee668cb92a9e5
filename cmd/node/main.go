//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"powernode-go/drivers/ina219"
	"powernode-go/platform"
	"powernode-go/services/config"
	"powernode-go/services/espat"
	"powernode-go/services/node"
	"powernode-go/services/report"
	"powernode-go/x/timex"
)

// device selects the embedded config; set with -ldflags "-X main.device=...".
var device = "pico-wifi"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("Info: boot", device)

	cfg, err := config.Load(device)
	if err != nil {
		println("Error: config:", err.Error())
		for {
			time.Sleep(time.Second)
		}
	}

	board := platform.Setup(platform.BoardConfig{ModemBaud: cfg.Modem.Baud})
	clk := timex.NewSystem()
	debug := report.NewDebugSink(board.Debug)

	var sensor node.Sensor = &node.RampSensor{}
	if cfg.Sensor == config.SensorINA219 {
		pair, err := node.NewINA219Pair(
			ina219.New(board.I2C, ina219.AddressA),
			ina219.New(board.I2C, ina219.AddressB),
		)
		if err != nil {
			println("Warn: ina219 configure:", err.Error())
		}
		sensor = pair
	}

	var sender report.Sender = debug
	if cfg.Reporter == config.ReporterWiFi {
		c := espat.New(clk, espat.ESPAT, cfg.ModemConfig())
		sender = report.NewWiFi(c, board.Modem, clk, cfg.WiFiConfig(), debug)
		println("Info: reporting to", cfg.Server.Host, cfg.Server.Path)
	}

	n := node.New(cfg.NodeConfig(), clk, sensor, &node.PinActuator{SetFn: board.SetFan}, sender)
	n.Run(context.Background())
}
