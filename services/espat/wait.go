package espat

import (
	"bytes"

	"powernode-go/errcode"
	"powernode-go/x/timex"
)

// SendCommand writes cmd plus the terminator and waits for the success or
// failure token.
func (c *Client) SendCommand(cmd string, timeoutMs uint32) error {
	return c.SendCommandExpect(cmd, "", timeoutMs)
}

// SendCommandExpect is SendCommand with a caller-chosen success substring.
// An empty expected means the dialect's success token.
func (c *Client) SendCommandExpect(cmd, expected string, timeoutMs uint32) error {
	if c.link == nil {
		return errcode.Busy
	}
	c.drain()
	if err := c.writeString(cmd); err != nil {
		return err
	}
	if err := c.writeString(c.d.Terminator); err != nil {
		return err
	}
	return c.wait(expected, timeoutMs)
}

// sendLine writes a prepared command line from the scratch buffer.
func (c *Client) sendLine(line []byte, expected string, timeoutMs uint32) error {
	if c.link == nil {
		return errcode.Busy
	}
	c.drain()
	if err := c.write(line); err != nil {
		return err
	}
	if err := c.writeString(c.d.Terminator); err != nil {
		return err
	}
	return c.wait(expected, timeoutMs)
}

// drain discards bytes already waiting on the link, such as an unsolicited
// server reply from the previous session, so they cannot satisfy the next
// wait.
func (c *Client) drain() {
	for i := 0; i < 4*cap(c.rx); i++ {
		if _, ok := c.link.RecvByte(0); !ok {
			return
		}
	}
}

func (c *Client) write(p []byte) error {
	for len(p) > 0 {
		n, err := c.link.Write(p)
		if err != nil || n <= 0 {
			return errcode.ProtocolError
		}
		p = p[n:]
	}
	return nil
}

func (c *Client) writeString(s string) error {
	if s == "" {
		return nil
	}
	// Stage through the command scratch so no conversion allocates.
	for len(s) > 0 {
		n := copy(c.cmd, s)
		if err := c.write(c.cmd[:n]); err != nil {
			return err
		}
		s = s[n:]
	}
	return nil
}

// wait reads one byte at a time until a token matches or timeoutMs passes
// on the monotonic tick. The window is cleared on entry; when it fills, the
// older half is dropped so late tokens still land.
func (c *Client) wait(expected string, timeoutMs uint32) error {
	if expected == "" {
		expected = c.d.OK
	}
	c.rx = c.rx[:0]
	start := c.clk.Millis()
	for timex.Elapsed(start, c.clk.Millis()) < timeoutMs {
		b, ok := c.link.RecvByte(c.cfg.PollWaitMs)
		if !ok {
			c.clk.Sleep(c.cfg.PollPauseMs)
			continue
		}
		c.push(b)
		if containsString(c.rx, expected) {
			return nil
		}
		if containsString(c.rx, c.d.Fail) {
			return errcode.ProtocolError
		}
	}
	return errcode.Timeout
}

func (c *Client) push(b byte) {
	if len(c.rx) == cap(c.rx) {
		n := copy(c.rx, c.rx[len(c.rx)/2:])
		c.rx = c.rx[:n]
	}
	c.rx = append(c.rx, b)
}

// containsString avoids converting the token on every byte.
func containsString(hay []byte, tok string) bool {
	if tok == "" || len(tok) > len(hay) {
		return false
	}
	// Only the tail can hold a new match: every earlier position was
	// already checked when its last byte arrived.
	tail := hay[len(hay)-len(tok):]
	for i := 0; i < len(tok); i++ {
		if tail[i] != tok[i] {
			return false
		}
	}
	return true
}

// Received returns a copy of the bytes seen by the last wait.
func (c *Client) Received() []byte { return bytes.Clone(c.rx) }
