package modemsim

import (
	"sync"
	"time"

	"powernode-go/errcode"
	"powernode-go/x/shmring"
)

// Pipe runs a Modem behind two rings. Write and RecvByte form the host end
// and satisfy the modem client's link contract.
type Pipe struct {
	m       *Modem
	toModem *shmring.Ring
	toHost  *shmring.Ring
	latency time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPipe wires m to rings of the given power-of-two size. latency delays
// each reply burst.
func NewPipe(m *Modem, size int, latency time.Duration) *Pipe {
	return &Pipe{
		m:       m,
		toModem: shmring.New(size),
		toHost:  shmring.New(size),
		latency: latency,
		stop:    make(chan struct{}),
	}
}

// Start launches the modem goroutine.
func (p *Pipe) Start() {
	p.wg.Add(1)
	go p.run()
}

// Close stops the modem goroutine and waits for it.
func (p *Pipe) Close() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pipe) run() {
	defer p.wg.Done()
	var buf [64]byte
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		for {
			n := p.toModem.TryReadInto(buf[:])
			if n == 0 {
				break
			}
			_, _ = p.m.Write(buf[:n])
		}
		if p.m.Pending() > 0 && p.latency > 0 {
			time.Sleep(p.latency)
		}
		for p.toHost.Space() > 0 {
			b, ok := p.m.RecvByte(0)
			if !ok {
				break
			}
			buf[0] = b
			p.toHost.TryWriteFrom(buf[:1])
		}
		select {
		case <-p.stop:
			return
		case <-p.toModem.Readable():
		case <-p.toHost.Writable():
		case <-tick.C:
		}
	}
}

// Write pushes host bytes toward the modem, blocking while the ring is full.
func (p *Pipe) Write(b []byte) (int, error) {
	total := 0
	for len(b) > 0 {
		n := p.toModem.TryWriteFrom(b)
		total += n
		b = b[n:]
		if len(b) == 0 {
			break
		}
		select {
		case <-p.toModem.Writable():
		case <-time.After(time.Millisecond):
		case <-p.stop:
			return total, errClosed
		}
	}
	return total, nil
}

// RecvByte waits up to waitMs for one modem byte.
func (p *Pipe) RecvByte(waitMs uint32) (byte, bool) {
	var one [1]byte
	if p.toHost.TryReadInto(one[:]) == 1 {
		return one[0], true
	}
	if waitMs == 0 {
		return 0, false
	}
	t := time.NewTimer(time.Duration(waitMs) * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-p.toHost.Readable():
			if p.toHost.TryReadInto(one[:]) == 1 {
				return one[0], true
			}
		case <-t.C:
			if p.toHost.TryReadInto(one[:]) == 1 {
				return one[0], true
			}
			return 0, false
		case <-p.stop:
			return 0, false
		}
	}
}

var errClosed = &errcode.E{C: errcode.Error, Op: "modemsim.write", Msg: "pipe closed"}
