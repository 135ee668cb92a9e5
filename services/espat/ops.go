package espat

import "powernode-go/errcode"

// Test sends the liveness command. Success returns an Idle or Initializing
// client to Idle; it never clears Error.
func (c *Client) Test() error {
	err := c.SendCommand(c.d.Test, c.cfg.CommandTimeoutMs)
	if err == nil && (c.state == Idle || c.state == Initializing) {
		c.state = Idle
	}
	return err
}

// Reset restarts the modem and confirms it answers again. It is the only
// way out of Error.
func (c *Client) Reset() error {
	if c.link == nil {
		return errcode.Busy
	}
	c.state = Initializing
	err := c.SendCommand(c.d.Reset, c.cfg.ResetTimeoutMs)
	c.clk.Sleep(c.cfg.ResetSettleMs)
	// The reset acknowledgement is often lost in boot noise.
	if err == nil || err == errcode.Timeout {
		c.clk.Sleep(c.cfg.ResetRetryDelayMs)
		err = c.Test()
		if err == errcode.Timeout {
			c.clk.Sleep(c.cfg.ResetRetryDelayMs)
			err = c.Test()
		}
	}
	if err != nil {
		c.state = Error
		return err
	}
	c.state = Idle
	return nil
}

// SetStationMode selects Wi-Fi station mode.
func (c *Client) SetStationMode() error {
	return c.SendCommand(c.d.StationMode, c.cfg.CommandTimeoutMs)
}

// ConnectLink joins the access point.
func (c *Client) ConnectLink(ssid, password string) error {
	if c.link == nil || c.state == Error {
		return errcode.Busy
	}
	l := newLine(c.cmd)
	l.str(c.d.JoinPrefix)
	okS := l.quoted(ssid)
	l.byte(',')
	okP := l.quoted(password)
	if !okS || !okP || l.over {
		return errcode.ProtocolError
	}
	c.state = LinkConnecting
	if err := c.sendLine(l.bytes(), "", c.cfg.JoinTimeoutMs); err != nil {
		c.state = Error
		return err
	}
	c.state = LinkConnected
	return nil
}

// JoinNetwork runs the liveness check, selects station mode and joins.
func (c *Client) JoinNetwork(ssid, password string) error {
	if err := c.Test(); err != nil {
		return err
	}
	if err := c.SetStationMode(); err != nil {
		return err
	}
	return c.ConnectLink(ssid, password)
}

// ConnectSession opens a TCP session. The link must be up; an open session
// may be reopened.
func (c *Client) ConnectSession(host string, port uint16) error {
	if c.link == nil || (c.state != LinkConnected && c.state != SessionConnected) {
		return errcode.Busy
	}
	if host == "" {
		return errcode.ProtocolError
	}
	l := newLine(c.cmd)
	l.str(c.d.OpenPrefix)
	ok := l.quoted(host)
	l.byte(',')
	l.uint(uint32(port))
	if !ok || l.over {
		return errcode.ProtocolError
	}
	c.state = SessionConnecting
	if err := c.sendLine(l.bytes(), "", c.cfg.CommandTimeoutMs); err != nil {
		c.state = Error
		return err
	}
	c.host = host
	c.state = SessionConnected
	return nil
}

// SendRequest frames payload as an HTTP/1.1 POST to path and pushes it over
// the open session. A failed prompt returns before any body byte is sent.
func (c *Client) SendRequest(path string, payload []byte) error {
	if c.link == nil || c.state != SessionConnected {
		return errcode.Busy
	}
	if path == "" || len(payload) == 0 || !printable(path) {
		return errcode.ProtocolError
	}
	for i := 0; i < len(path); i++ {
		if path[i] == ' ' {
			return errcode.ProtocolError
		}
	}

	req := newLine(c.tx)
	req.str("POST ")
	req.str(path)
	req.str(" HTTP/1.1\r\nHost: ")
	req.str(c.host)
	req.str("\r\nContent-Type: ")
	req.str(c.cfg.ContentType)
	req.str("\r\nContent-Length: ")
	req.uint(uint32(len(payload)))
	req.str("\r\n\r\n")
	req.raw(payload)
	if req.over {
		return errcode.ProtocolError
	}
	n := req.n

	l := newLine(c.cmd)
	l.str(c.d.SendPrefix)
	l.uint(uint32(n))
	if err := c.sendLine(l.bytes(), c.d.Prompt, c.cfg.CommandTimeoutMs); err != nil {
		return err
	}
	if err := c.write(c.tx[:n]); err != nil {
		return err
	}
	return c.wait("", c.cfg.CommandTimeoutMs)
}

// CloseSession closes the TCP session. Only an open session moves back to
// LinkConnected; any other state is left as it was.
func (c *Client) CloseSession() error {
	if err := c.SendCommand(c.d.Close, c.cfg.CommandTimeoutMs); err != nil {
		return err
	}
	if c.state == SessionConnected {
		c.state = LinkConnected
	}
	return nil
}
