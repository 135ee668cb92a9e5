// Package bus is an in-process publish/subscribe hub with retained
// messages and MQTT-style topic patterns.
//
// Topics are slash-separated paths. In a subscription pattern "+" matches
// one level and a trailing "#" matches any remaining levels. A retained
// message is kept per topic and handed to every later matching subscriber;
// publishing a retained message with a nil payload clears it.
//
// Delivery never blocks the publisher: a full subscriber queue drops its
// oldest message.
package bus

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Topic is a parsed topic path or pattern.
type Topic []string

// T builds a topic from levels.
func T(levels ...string) Topic { return Topic(levels) }

// Parse splits a slash-separated topic.
func Parse(s string) Topic { return Topic(strings.Split(s, "/")) }

func (t Topic) String() string { return strings.Join(t, "/") }

// Match reports whether topic t matches pattern p.
func Match(p, t Topic) bool {
	for i, lvl := range p {
		if lvl == "#" {
			return i == len(p)-1
		}
		if i >= len(t) {
			return false
		}
		if lvl != "+" && lvl != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	pattern Topic
	ch      chan *Message
	conn    *Connection
	dropped atomic.Uint32
}

func (s *Subscription) Topic() Topic             { return s.pattern }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// Dropped counts messages discarded because the queue was full.
func (s *Subscription) Dropped() uint32 { return s.dropped.Load() }

type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	retained map[string]*Message
	qLen     int
}

// NewBus creates a bus whose subscriptions queue up to queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		subs:     make(map[*Subscription]struct{}),
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

// Publish delivers msg to every matching subscription.
func (b *Bus) Publish(msg *Message) {
	key := msg.Topic.String()
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if Match(sub.pattern, msg.Topic) {
			deliver(sub, msg)
		}
	}
	if msg.Retained {
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
}

// Retained returns the retained message on topic, if any.
func (b *Bus) Retained(topic Topic) (*Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.retained[topic.String()]
	return m, ok
}

// deliver runs under b.mu, so the only concurrent party is the reader.
func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- msg:
	default:
	}
	sub.dropped.Add(1)
}

func (b *Bus) add(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}

	keys := make([]string, 0, len(b.retained))
	for k, m := range b.retained {
		if Match(sub.pattern, m.Topic) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		deliver(sub, b.retained[k])
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Connection groups the subscriptions of one client.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers pattern; matching retained messages arrive first.
func (c *Connection) Subscribe(pattern Topic) *Subscription {
	sub := &Subscription{
		pattern: pattern,
		ch:      make(chan *Message, c.bus.qLen),
		conn:    c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.add(sub)
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.bus.remove(sub)
}

// Disconnect closes every subscription of the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.remove(sub)
	}
}
