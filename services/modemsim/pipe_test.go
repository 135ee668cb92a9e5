package modemsim_test

import (
	"testing"
	"time"

	"powernode-go/services/espat"
	"powernode-go/services/modemsim"
	"powernode-go/x/timex"
)

func TestPipeEndToEnd(t *testing.T) {
	m := modemsim.New(nil, modemsim.Faults{Echo: true, Reply: true})
	p := modemsim.NewPipe(m, 64, 0)
	p.Start()
	defer p.Close()

	c := espat.New(timex.NewSystem(), espat.ESPAT, espat.Config{CommandTimeoutMs: 2000, JoinTimeoutMs: 2000})
	if err := c.Init(p); err != nil {
		t.Fatal(err)
	}
	if err := c.JoinNetwork("lab", "pw"); err != nil {
		t.Fatalf("JoinNetwork: %v", err)
	}
	if err := c.ConnectSession("127.0.0.1", 3000); err != nil {
		t.Fatalf("ConnectSession: %v", err)
	}
	// Larger than the ring, so the write side has to wait for the modem.
	payload := []byte(`{"t":123456,"pA":65535,"pB":0,"fan":false,"pad":"................................"}`)
	for i := 0; i < 2; i++ {
		if err := c.SendRequest("/api/energy", payload); err != nil {
			t.Fatalf("SendRequest %d: %v", i, err)
		}
	}
	if got := len(m.Bodies()); got != 2 {
		t.Fatalf("bodies=%d", got)
	}
	if c.State() != espat.SessionConnected {
		t.Fatalf("state=%v", c.State())
	}
}

func TestPipeRecvTimesOut(t *testing.T) {
	p := modemsim.NewPipe(modemsim.New(nil, modemsim.Faults{}), 16, 0)
	p.Start()
	defer p.Close()
	start := time.Now()
	if _, ok := p.RecvByte(20); ok {
		t.Fatal("unexpected byte")
	}
	if el := time.Since(start); el < 15*time.Millisecond {
		t.Fatalf("returned after %v", el)
	}
}
