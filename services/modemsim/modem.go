// Package modemsim is an ESP-AT modem responder for host runs and tests.
//
// A Modem answers command lines synchronously through Write and RecvByte.
// A Pipe runs a Modem in its own goroutine behind a pair of byte rings, so
// replies arrive asynchronously as they would over a UART.
package modemsim

import (
	"strconv"
	"strings"
	"sync"

	"powernode-go/x/timex"
)

// Faults selects injected failures.
type Faults struct {
	Silent      bool // swallow every command
	FailJoin    bool
	FailSession bool
	FailSend    bool // refuse the send announcement
	DropResetOK bool // answer a reset with boot noise only
	Echo        bool // echo command lines back, as with ATE1
	Reply       bool // push an unsolicited HTTP reply after each body
}

// Modem is a scripted ESP-AT responder. Safe for concurrent use.
type Modem struct {
	mu     sync.Mutex
	clk    timex.Clock // advanced by idle reads when set
	faults Faults

	out      []byte // modem -> host
	line     []byte
	bodyLeft int
	body     []byte

	cmds   []string
	bodies [][]byte
	joined bool
	open   bool
}

// New returns an idle modem. clk may be nil.
func New(clk timex.Clock, f Faults) *Modem {
	return &Modem{clk: clk, faults: f}
}

// SetFaults replaces the injected failures.
func (m *Modem) SetFaults(f Faults) {
	m.mu.Lock()
	m.faults = f
	m.mu.Unlock()
}

// Write feeds host bytes to the modem.
func (m *Modem) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range p {
		m.feed(b)
	}
	return len(p), nil
}

// RecvByte pops one modem byte. With nothing pending it advances the clock
// by waitMs, if there is one.
func (m *Modem) RecvByte(waitMs uint32) (byte, bool) {
	m.mu.Lock()
	if len(m.out) == 0 {
		m.mu.Unlock()
		if m.clk != nil {
			m.clk.Sleep(waitMs)
		}
		return 0, false
	}
	b := m.out[0]
	m.out = m.out[1:]
	m.mu.Unlock()
	return b, true
}

// Inject queues unsolicited modem output.
func (m *Modem) Inject(s string) {
	m.mu.Lock()
	m.out = append(m.out, s...)
	m.mu.Unlock()
}

// Commands returns every command line received so far.
func (m *Modem) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cmds...)
}

// Bodies returns every send payload received so far.
func (m *Modem) Bodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.bodies))
	for i, b := range m.bodies {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// Pending reports how many reply bytes the host has not read.
func (m *Modem) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.out)
}

func (m *Modem) feed(b byte) {
	if m.bodyLeft > 0 {
		m.body = append(m.body, b)
		m.bodyLeft--
		if m.bodyLeft == 0 {
			m.finishBody()
		}
		return
	}
	m.line = append(m.line, b)
	if n := len(m.line); n >= 2 && m.line[n-2] == '\r' && m.line[n-1] == '\n' {
		cmd := string(m.line[:n-2])
		m.line = m.line[:0]
		m.command(cmd)
	}
}

func (m *Modem) finishBody() {
	m.bodies = append(m.bodies, m.body)
	n := len(m.body)
	m.body = nil
	m.reply("\r\nRecv " + strconv.Itoa(n) + " bytes\r\n\r\nSEND OK\r\n")
	if m.faults.Reply {
		body := `{"status":"OK","message":"Data received"}`
		resp := "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
		m.reply("\r\n+IPD," + strconv.Itoa(len(resp)) + ":" + resp)
	}
}

func (m *Modem) reply(s string) { m.out = append(m.out, s...) }

const (
	ok   = "\r\nOK\r\n"
	fail = "\r\nERROR\r\n"
)

func (m *Modem) command(cmd string) {
	m.cmds = append(m.cmds, cmd)
	if m.faults.Silent {
		return
	}
	if m.faults.Echo {
		m.reply(cmd + "\r\n")
	}
	switch {
	case cmd == "AT", cmd == "AT+CWMODE=1", cmd == "ATE0", cmd == "ATE1":
		m.reply(ok)
	case cmd == "AT+RST":
		m.joined, m.open = false, false
		if !m.faults.DropResetOK {
			m.reply(ok)
		}
		m.reply("\r\n\x00\xfeets Jan  8 2013,rst cause:2\r\nready\r\n")
	case strings.HasPrefix(cmd, "AT+CWJAP="):
		if m.faults.FailJoin {
			m.reply("+CWJAP:3\r\n" + fail)
			return
		}
		m.joined = true
		m.reply("WIFI CONNECTED\r\nWIFI GOT IP\r\n" + ok)
	case strings.HasPrefix(cmd, "AT+CIPSTART="):
		if !m.joined || m.faults.FailSession {
			m.reply(fail)
			return
		}
		m.open = true
		m.reply("CONNECT\r\n" + ok)
	case strings.HasPrefix(cmd, "AT+CIPSEND="):
		n, err := strconv.Atoi(strings.TrimPrefix(cmd, "AT+CIPSEND="))
		if err != nil || n <= 0 || !m.open || m.faults.FailSend {
			m.reply(fail)
			return
		}
		m.bodyLeft = n
		m.reply(ok + "> ")
	case cmd == "AT+CIPCLOSE":
		if !m.open {
			m.reply(fail)
			return
		}
		m.open = false
		m.reply("CLOSED\r\n" + ok)
	default:
		m.reply(fail)
	}
}
