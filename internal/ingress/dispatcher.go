// Package ingress is the boundary with the platform shim: it decodes posted,
// removed and session records and runs each one through the engine and the
// forwarder.
package ingress

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"focusdesk/internal/engine"
	"focusdesk/internal/eventbus"
	"focusdesk/internal/forwarder"
	"focusdesk/internal/notification"
	"focusdesk/internal/session"
	"focusdesk/internal/telemetry"
	logx "focusdesk/pkg/logx"
)

// Removal outcomes reported to metrics.
const (
	RemovalDelivered    = "delivered"
	RemovalDropped      = "dropped"
	RemovalMissingTitle = "missing_title"
)

type Options struct {
	Log       logx.Logger
	Engine    *engine.Engine
	Forwarder *forwarder.Forwarder
	Session   *session.Flag
	Bus       eventbus.Bus
	Metrics   *telemetry.Metrics

	// DropWarnEvery bounds how often "no consumer" drops are logged at warn.
	DropWarnEvery time.Duration
}

// Dispatcher runs every record to completion under one lock, so there is a
// single logical delivery path however many producer connections are open.
type Dispatcher struct {
	log     logx.Logger
	engine  *engine.Engine
	fwd     *forwarder.Forwarder
	session *session.Flag
	bus     eventbus.Bus
	metrics *telemetry.Metrics
	warn    *rate.Limiter

	mu sync.Mutex
}

func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		log:     opts.Log,
		engine:  opts.Engine,
		fwd:     opts.Forwarder,
		session: opts.Session,
		bus:     opts.Bus,
		metrics: opts.Metrics,
	}
	if d.log.IsZero() {
		d.log = logx.Nop()
	}
	if d.engine == nil {
		d.engine = engine.New(nil)
	}
	if d.bus == nil {
		d.bus = eventbus.Nop()
	}
	if d.fwd == nil {
		d.fwd = forwarder.New(d.log, d.bus)
	}
	if d.session == nil {
		d.session = &session.Flag{}
	}
	every := opts.DropWarnEvery
	if every <= 0 {
		every = 30 * time.Second
	}
	d.warn = rate.NewLimiter(rate.Every(every), 1)
	return d
}

// Posted evaluates raw against the current session state and forwards the
// POST event if admitted. It reports whether an event reached the consumer.
func (d *Dispatcher) Posted(ctx context.Context, raw notification.RawNotification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx = session.WithActive(ctx, d.session.Active())
	ev, dec := d.engine.Evaluate(ctx, raw)
	d.metrics.Decision(dec.Verdict.String(), string(dec.Reason))
	if !dec.Admitted() {
		d.log.Debug("notification rejected",
			logx.String("app", raw.SourceApp),
			logx.String("reason", string(dec.Reason)),
		)
		return false
	}
	d.log.Debug("notification admitted",
		logx.String("id", ev.ID.String()),
		logx.String("reason", string(dec.Reason)),
	)
	return d.deliver(ev)
}

// Removed forwards the REMOVE event for rm. Removals skip the filter.
func (d *Dispatcher) Removed(_ context.Context, rm notification.RawRemoval) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	ev, ok := d.engine.OnRemoved(rm)
	if !ok {
		d.metrics.Removal(RemovalMissingTitle)
		d.log.Debug("removal without title ignored", logx.String("app", rm.SourceApp))
		return false
	}
	if d.deliver(ev) {
		d.metrics.Removal(RemovalDelivered)
		return true
	}
	d.metrics.Removal(RemovalDropped)
	return false
}

// SetSession records a foreground/background transition.
func (d *Dispatcher) SetSession(active bool) {
	d.mu.Lock()
	changed := d.session.Set(active)
	d.mu.Unlock()

	if !changed {
		return
	}
	d.metrics.Session(active)
	d.bus.Publish(eventbus.Event{Type: eventbus.SessionChanged, Data: eventbus.SessionEvent{Active: active}})
}

// Handle routes one decoded record. Unknown kinds are logged and skipped.
func (d *Dispatcher) Handle(ctx context.Context, rec Record) {
	switch rec.Kind {
	case KindPosted:
		d.metrics.Record(string(KindPosted))
		d.Posted(ctx, rec.Notification())
	case KindRemoved:
		d.metrics.Record(string(KindRemoved))
		d.Removed(ctx, rec.Removal())
	case KindSession:
		d.metrics.Record(string(KindSession))
		if rec.Active == nil {
			d.log.Debug("session record without active flag ignored")
			return
		}
		d.SetSession(*rec.Active)
	default:
		d.metrics.Record("unknown")
		d.log.Debug("unknown record kind skipped", logx.String("kind", string(rec.Kind)))
	}
}

func (d *Dispatcher) deliver(ev notification.Event) bool {
	if d.fwd.Publish(ev) {
		d.metrics.Forwarded(string(ev.Action))
		return true
	}
	d.metrics.Dropped(string(ev.Action))
	if d.warn.Allow() {
		d.log.Warn("no consumer attached; dropping events",
			logx.String("action", string(ev.Action)),
			logx.String("id", ev.ID.String()),
		)
	} else {
		d.log.Debug("event dropped", logx.String("action", string(ev.Action)), logx.String("id", ev.ID.String()))
	}
	return false
}
