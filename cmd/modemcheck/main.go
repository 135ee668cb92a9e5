// modemcheck walks an ESP-AT modem through the node's bring-up sequence one
// step at a time and reports what each step returned, with the raw reply
// on failure.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"powernode-go/errcode"
	"powernode-go/platform"
	"powernode-go/services/espat"
	"powernode-go/services/modemsim"
	"powernode-go/services/report"
	"powernode-go/types"
	"powernode-go/x/timex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type step struct {
	name string
	fn   func() error
}

func run() error {
	var (
		serialPath string
		baud       int
		ssid, pass string
		host, path string
		port       uint16
		reset      bool
	)
	fs := pflag.NewFlagSet("modemcheck", pflag.ContinueOnError)
	fs.StringVar(&serialPath, "serial", "", "modem serial device (default: simulated modem)")
	fs.IntVar(&baud, "baud", 115200, "modem baud rate")
	fs.StringVar(&ssid, "ssid", "lab", "network name")
	fs.StringVar(&pass, "password", "", "network password")
	fs.StringVar(&host, "host", "127.0.0.1", "collector host")
	fs.Uint16Var(&port, "port", 3000, "collector port")
	fs.StringVar(&path, "path", "/api/energy", "collector path")
	fs.BoolVar(&reset, "reset", false, "reset the modem first")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	var link espat.Link
	if serialPath != "" {
		l, err := platform.OpenSerial(serialPath, baud)
		if err != nil {
			return err
		}
		defer l.Close()
		link = l
	} else {
		p := modemsim.NewPipe(modemsim.New(nil, modemsim.Faults{Echo: true}), 256, time.Millisecond)
		p.Start()
		defer p.Close()
		link = p
		fmt.Println("[modem] using simulated modem")
	}

	c := espat.New(timex.NewSystem(), espat.ESPAT, espat.Config{})
	if err := c.Init(link); err != nil {
		return err
	}

	var body [96]byte
	steps := []step{
		{"test", c.Test},
		{"station mode", c.SetStationMode},
		{"join " + ssid, func() error { return c.ConnectLink(ssid, pass) }},
		{"open " + host + ":" + strconv.Itoa(int(port)), func() error { return c.ConnectSession(host, port) }},
		{"post " + path, func() error {
			b, err := report.Encode(body[:], types.Sample{TimestampMs: 1, PowerA: 600, PowerB: 250})
			if err != nil {
				return err
			}
			return c.SendRequest(path, b)
		}},
		{"close", c.CloseSession},
	}
	if reset {
		steps = append([]step{{"reset", c.Reset}}, steps...)
	}

	for _, s := range steps {
		start := time.Now()
		err := s.fn()
		el := time.Since(start).Round(time.Millisecond)
		if err != nil {
			fmt.Printf("[modem] %-24s FAIL %s after %v, state=%v\n", s.name, errcode.Of(err), el, c.State())
			fmt.Printf("[modem] reply: %q\n", c.Received())
			return fmt.Errorf("%s: %w", s.name, err)
		}
		fmt.Printf("[modem] %-24s ok in %v, state=%v\n", s.name, el, c.State())
	}
	return nil
}
