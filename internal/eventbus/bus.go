// Package eventbus carries lifecycle signals (subscriber attached, event dropped,
// session changed) from the core to observers such as the lifecycle logger.
//
// It is not the delivery path for notification events; those go through the
// forwarder synchronously.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Type names a lifecycle signal.
type Type string

const (
	ForwarderSubscribed   Type = "forwarder.subscribed"
	ForwarderUnsubscribed Type = "forwarder.unsubscribed"
	ForwarderDropped      Type = "forwarder.dropped"
	ForwarderSinkFailed   Type = "forwarder.sink_failed"
	SessionChanged        Type = "session.changed"
	ConfigApplied         Type = "config.applied"
)

// Event is a lightweight, in-memory signal.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers get buffered channels; slow subscribers drop events.
type Event struct {
	Type Type
	Time time.Time
	Data any
}

// SubscriptionEvent is the Data of forwarder subscribe/unsubscribe signals.
type SubscriptionEvent struct {
	ID       uint64 `json:"id"`
	Replaced uint64 `json:"replaced,omitempty"`
}

// DropEvent is the Data of forwarder drop/failure signals.
type DropEvent struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Error  string `json:"error,omitempty"`
}

// SessionEvent is the Data of session.changed.
type SessionEvent struct {
	Active bool `json:"active"`
}

// ConfigEvent is the Data of config.applied.
type ConfigEvent struct {
	Hash     string   `json:"hash"`
	Sections []string `json:"sections,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Nop returns a bus that discards everything.
func Nop() Bus { return nopBus{} }

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Hold the read lock while sending so unsubscribe cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}

type nopBus struct{}

func (nopBus) Publish(Event) {}

func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}
