// Package espat drives an ESP-AT Wi-Fi companion modem over a byte link.
//
// Every exchange is a command line followed by a bounded wait that scans the
// incoming bytes for a token after each byte. The client owns the modem
// connection state; it never retries on its own except inside Reset. Retry
// and fallback policy belong to the caller.
//
// A wait busy-polls the link and blocks the calling goroutine for up to its
// timeout. On the node that is the scheduler goroutine, so all other tasks
// stall for that long; there is no cancellation once a wait has begun.
//
// Errors are bare errcode values: Timeout, ProtocolError or Busy.
package espat

import (
	"powernode-go/errcode"
	"powernode-go/x/mathx"
	"powernode-go/x/timex"
)

// State is the modem connection state.
type State uint8

const (
	Idle State = iota
	Initializing
	LinkConnecting
	LinkConnected
	SessionConnecting
	SessionConnected
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case LinkConnecting:
		return "link_connecting"
	case LinkConnected:
		return "link_connected"
	case SessionConnecting:
		return "session_connecting"
	case SessionConnected:
		return "session_connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Link is the serial byte stream to the modem.
type Link interface {
	Write(p []byte) (int, error)
	// RecvByte waits at most waitMs for one byte; ok is false if none came.
	RecvByte(waitMs uint32) (b byte, ok bool)
}

// Dialect is the modem's token and command vocabulary.
type Dialect struct {
	Terminator string
	OK         string // unconditional success token
	Fail       string // generic failure token
	Prompt     string // ready-for-data token after a send announcement

	Test        string
	Reset       string
	StationMode string
	JoinPrefix  string // followed by "ssid","password"
	OpenPrefix  string // followed by "host",port
	SendPrefix  string // followed by the byte count
	Close       string
}

// ESPAT is the vocabulary of the Espressif AT firmware. The success and
// failure tokens include their line ending so that an echoed command line
// carrying quoted text can never match them.
var ESPAT = Dialect{
	Terminator:  "\r\n",
	OK:          "OK\r\n",
	Fail:        "ERROR\r\n",
	Prompt:      ">",
	Test:        "AT",
	Reset:       "AT+RST",
	StationMode: "AT+CWMODE=1",
	JoinPrefix:  "AT+CWJAP=",
	OpenPrefix:  `AT+CIPSTART="TCP",`,
	SendPrefix:  "AT+CIPSEND=",
	Close:       "AT+CIPCLOSE",
}

// Config holds buffer capacities and timings. Zero fields take defaults.
type Config struct {
	RxBufferSize  int // rolling receive window
	TxBufferSize  int // framed request
	CmdBufferSize int // one command line

	PollWaitMs  uint32 // per-attempt read wait
	PollPauseMs uint32 // pause after an empty attempt

	CommandTimeoutMs  uint32
	JoinTimeoutMs     uint32
	ResetTimeoutMs    uint32
	ResetSettleMs     uint32
	ResetRetryDelayMs uint32

	ContentType string
}

func (c Config) normalized() Config {
	c.RxBufferSize = mathx.Or(c.RxBufferSize, 512)
	c.TxBufferSize = mathx.Or(c.TxBufferSize, 512)
	c.CmdBufferSize = mathx.Or(c.CmdBufferSize, 192)
	c.PollWaitMs = mathx.Or(c.PollWaitMs, 10)
	c.PollPauseMs = mathx.Or(c.PollPauseMs, 1)
	c.CommandTimeoutMs = mathx.Or(c.CommandTimeoutMs, 5000)
	c.JoinTimeoutMs = mathx.Or(c.JoinTimeoutMs, 15000)
	c.ResetTimeoutMs = mathx.Or(c.ResetTimeoutMs, 10000)
	c.ResetSettleMs = mathx.Or(c.ResetSettleMs, 2000)
	c.ResetRetryDelayMs = mathx.Or(c.ResetRetryDelayMs, 1000)
	c.ContentType = mathx.Or(c.ContentType, "application/json")
	return c
}

// Client is the modem protocol driver. Not safe for concurrent use.
type Client struct {
	link  Link
	clk   timex.Clock
	cfg   Config
	d     Dialect
	state State
	host  string // session host, sent as the Host header

	rx  []byte // rolling receive window, cleared per wait
	tx  []byte // request framing scratch
	cmd []byte // command line scratch
}

// New allocates every buffer the client will ever use.
func New(clk timex.Clock, d Dialect, cfg Config) *Client {
	cfg = cfg.normalized()
	return &Client{
		clk: clk,
		cfg: cfg,
		d:   d,
		rx:  make([]byte, 0, cfg.RxBufferSize),
		tx:  make([]byte, cfg.TxBufferSize),
		cmd: make([]byte, cfg.CmdBufferSize),
	}
}

// Init binds the link and resets the state to Idle.
func (c *Client) Init(link Link) error {
	if link == nil {
		return errcode.ProtocolError
	}
	c.link = link
	c.state = Idle
	c.rx = c.rx[:0]
	return nil
}

// State reports the current connection state.
func (c *Client) State() State { return c.state }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }
