// Package forwarder delivers engine decisions to the single downstream consumer.
//
// The forwarder owns one subscription slot. Subscribing replaces whoever held
// it (last subscriber wins); publishing with an empty slot drops the event.
// There is no buffering and no replay.
package forwarder

import (
	"sync"
	"sync/atomic"

	"focusdesk/internal/eventbus"
	"focusdesk/internal/notification"
	logx "focusdesk/pkg/logx"
)

// Sink receives events for one subscription. Send is called synchronously,
// one event at a time, in publish order. A non-nil error means the consumer
// is gone; the subscription is released.
type Sink interface {
	Send(ev notification.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev notification.Event) error

func (f SinkFunc) Send(ev notification.Event) error { return f(ev) }

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id   uint64
	sink Sink
	fwd  *Forwarder

	once sync.Once
	done chan struct{}
}

func (s *Subscription) ID() uint64 { return s.id }

// Done is closed once the subscription is released, either by Unsubscribe or
// because a newer subscriber replaced it.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Unsubscribe is shorthand for Forwarder.Unsubscribe(s).
func (s *Subscription) Unsubscribe() {
	if s == nil || s.fwd == nil {
		return
	}
	s.fwd.Unsubscribe(s)
}

func (s *Subscription) release() bool {
	released := false
	s.once.Do(func() {
		close(s.done)
		released = true
	})
	return released
}

// Forwarder is safe for concurrent use.
type Forwarder struct {
	log logx.Logger
	bus eventbus.Bus

	// mu guards cur. It is never held while calling a Sink.
	mu  sync.Mutex
	cur *Subscription
	seq atomic.Uint64

	// deliverMu serializes deliveries so order equals publish order.
	deliverMu sync.Mutex
}

func New(log logx.Logger, bus eventbus.Bus) *Forwarder {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Forwarder{log: log, bus: bus}
}

// Subscribe installs sink as the current subscriber and releases the previous one.
func (f *Forwarder) Subscribe(sink Sink) *Subscription {
	sub := &Subscription{
		id:   f.seq.Add(1),
		sink: sink,
		fwd:  f,
		done: make(chan struct{}),
	}

	f.mu.Lock()
	prev := f.cur
	f.cur = sub
	f.mu.Unlock()

	var replaced uint64
	if prev != nil && prev.release() {
		replaced = prev.id
		f.log.Debug("subscriber replaced", logx.Uint64("id", prev.id), logx.Uint64("by", sub.id))
	}
	f.bus.Publish(eventbus.Event{Type: eventbus.ForwarderSubscribed, Data: eventbus.SubscriptionEvent{ID: sub.id, Replaced: replaced}})
	return sub
}

// Unsubscribe stops delivery to sub. It is idempotent, accepts nil, and may be
// called from inside Sink.Send. Releasing a subscription that was already
// replaced leaves the current subscriber alone.
func (f *Forwarder) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	f.mu.Lock()
	if f.cur == sub {
		f.cur = nil
	}
	f.mu.Unlock()

	if sub.release() {
		f.bus.Publish(eventbus.Event{Type: eventbus.ForwarderUnsubscribed, Data: eventbus.SubscriptionEvent{ID: sub.id}})
	}
}

// Active reports whether a subscriber is attached.
func (f *Forwarder) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur != nil
}

// Publish delivers ev to the current subscriber and reports whether it was
// delivered. Without a subscriber the event is dropped.
func (f *Forwarder) Publish(ev notification.Event) bool {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	sub := f.cur
	f.mu.Unlock()

	if sub == nil {
		f.bus.Publish(eventbus.Event{Type: eventbus.ForwarderDropped, Data: eventbus.DropEvent{Action: string(ev.Action), Key: ev.ID.String()}})
		return false
	}

	if err := sub.sink.Send(ev); err != nil {
		f.log.Debug("sink failed; releasing subscriber", logx.Uint64("id", sub.id), logx.Err(err))
		f.bus.Publish(eventbus.Event{Type: eventbus.ForwarderSinkFailed, Data: eventbus.DropEvent{Action: string(ev.Action), Key: ev.ID.String(), Error: err.Error()}})
		f.Unsubscribe(sub)
		return false
	}
	return true
}
