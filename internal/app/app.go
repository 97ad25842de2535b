// Package app wires the filter, engine, forwarder and their listeners into a
// running daemon and applies config hot reloads.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"focusdesk/internal/config"
	"focusdesk/internal/consumer"
	"focusdesk/internal/engine"
	"focusdesk/internal/eventbus"
	"focusdesk/internal/forwarder"
	"focusdesk/internal/ingress"
	"focusdesk/internal/observability/server"
	"focusdesk/internal/policy"
	"focusdesk/internal/runtime/supervisor"
	"focusdesk/internal/session"
	"focusdesk/internal/telemetry"
	logx "focusdesk/pkg/logx"
	"focusdesk/pkg/systemd"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log     logx.Logger
	logs    *logx.Service
	bus     eventbus.Bus
	metrics *telemetry.Metrics
	notify  *systemd.Notifier

	filter  *policy.Filter
	session *session.Flag
	fwd     *forwarder.Forwarder
	disp    *ingress.Dispatcher

	ingress *ingress.Server
	events  *consumer.StreamServer
	methods *consumer.MethodServer
	obs     *server.Service
}

// Status is served on the observability /status endpoint.
type Status struct {
	Subscribed bool                    `json:"subscribed"`
	Session    bool                    `json:"session_active"`
	ConfigHash string                  `json:"config_hash"`
	Tasks      []supervisor.TaskStatus `json:"tasks"`
}

// New loads the config through cfgm and builds every component. Nothing
// listens until Start.
func New(cfgm *config.Manager) (*App, error) {
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	rt, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(rt.Logging)
	comp := func(name string) logx.Logger { return root.With(logx.String("comp", name)) }

	bus := eventbus.New()
	metrics := telemetry.New()

	filter := policy.NewFilter(rt.Lists)
	if overlap := rt.Lists.Overlap(); len(overlap) > 0 {
		comp("policy").Warn("apps in both allow and deny lists are denied", logx.Strings("apps", overlap))
	}
	flag := &session.Flag{}
	fwd := forwarder.New(comp("forwarder"), bus)
	metrics.SubscriberFunc(fwd.Active)

	disp := ingress.NewDispatcher(ingress.Options{
		Log:           comp("dispatcher"),
		Engine:        engine.New(filter),
		Forwarder:     fwd,
		Session:       flag,
		Bus:           bus,
		Metrics:       metrics,
		DropWarnEvery: rt.DropWarnInterval,
	})

	events := consumer.NewStreamServer(comp("events"), fwd, rt.Events, rt.ConsumerCodec, metrics)
	events.SetWriteTimeout(rt.WriteTimeout)

	methods := consumer.NewMethodServer(comp("methods"), rt.Methods, rt.ConsumerCodec, metrics)
	if len(rt.SettingsCommand) > 0 {
		opener := consumer.NewSettingsOpener(comp("settings"), rt.SettingsCommand, rt.CommandTimeout)
		methods.Handle(consumer.MethodOpenSettings, opener.Open)
	}

	a := &App{
		cfgm:    cfgm,
		log:     comp("app"),
		logs:    logSvc,
		bus:     bus,
		metrics: metrics,
		notify:  systemd.New(),
		filter:  filter,
		session: flag,
		fwd:     fwd,
		disp:    disp,
		ingress: ingress.NewServer(comp("ingress"), disp, rt.Ingress, rt.IngressCodec, metrics),
		events:  events,
		methods: methods,
	}
	a.obs = server.New(rt.Observability, comp("observability"), metrics.Handler(), a.status)
	cfgm.SetValidator(a.validateReload)
	return a, nil
}

// validateReload rejects a reload before it is committed when the running
// components could not take it.
func (a *App) validateReload(_ context.Context, cfg *config.Config) error {
	rt, err := cfg.Resolve()
	if err != nil {
		return err
	}
	return server.Validate(rt.Observability)
}

// Dispatcher exposes the ingress path for in-process producers.
func (a *App) Dispatcher() *ingress.Dispatcher { return a.disp }

func (a *App) Forwarder() *forwarder.Forwarder { return a.fwd }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) status() any {
	st := Status{
		Subscribed: a.fwd.Active(),
		Session:    a.session.Active(),
		ConfigHash: config.HashString(a.cfgm.Get()),
	}
	if a.sup != nil {
		st.Tasks = a.sup.Snapshot()
	}
	return st
}

// Start launches every listener under one supervisor. A listener that fails
// cancels the app; callers watch Done and Err.
func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return fmt.Errorf("app already started")
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	a.sup.Go("ingress", a.ingress.Run)
	a.sup.Go("events", a.events.Run)
	a.sup.Go("methods", a.methods.Run)

	if a.obs.Enabled() {
		a.obs.Start(a.sup.Context())
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		a.logSignals(c, events)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.applyLoop(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	if sent, err := a.notify.Ready(); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}
	a.reportStatus(a.cfgm.Get())
	a.log.Info("app started", logx.Strings("methods", a.methods.Methods()))
	return nil
}

// reportStatus publishes the config hash, consumer and session state as
// the service manager status line.
func (a *App) reportStatus(cfg *config.Config) {
	consumer := "none"
	if a.fwd.Active() {
		consumer = "subscribed"
	}
	session := "inactive"
	if a.session.Active() {
		session = "active"
	}
	msg := fmt.Sprintf("config %s, consumer %s, session %s", config.HashString(cfg), consumer, session)
	if _, err := a.notify.Status(msg); err != nil {
		a.log.Debug("sd_notify status failed", logx.Err(err))
	}
}

// applyLoop applies published configs. Bursts are coalesced to the latest.
func (a *App) applyLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
		drain:
			for {
				select {
				case newer, ok := <-sub:
					if !ok {
						return
					}
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			if a.apply(ctx, lastApplied, newCfg) {
				lastApplied = newCfg
			}
		}
	}
}

// apply pushes the hot-reloadable sections of newCfg into the running
// components. It reports whether newCfg was applied.
func (a *App) apply(ctx context.Context, oldCfg, newCfg *config.Config) bool {
	rt, err := newCfg.Resolve()
	if err != nil {
		a.log.Warn("invalid config; keeping previous", logx.Err(err))
		return false
	}
	_, _ = a.notify.Reloading()

	sections, attrs := config.Summarize(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		_, _ = a.notify.Ready()
		a.reportStatus(newCfg)
		return true
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	a.logs.Apply(rt.Logging)
	a.filter.SetLists(rt.Lists)
	if overlap := rt.Lists.Overlap(); len(overlap) > 0 {
		a.log.Warn("apps in both allow and deny lists are denied", logx.Strings("apps", overlap))
	}
	a.obs.Reconfigure(ctx, rt.Observability)

	if restart := config.RestartRequired(sections); len(restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.Strings("sections", restart))
	}

	a.bus.Publish(eventbus.Event{
		Type: eventbus.ConfigApplied,
		Time: time.Now(),
		Data: eventbus.ConfigEvent{Hash: config.HashString(newCfg), Sections: sections},
	})
	a.log.Info("config reloaded", fields...)
	_, _ = a.notify.Ready()
	a.reportStatus(newCfg)
	return true
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = a.notify.Stopping()

	// Cancel first so listeners close and connection loops unwind.
	a.sup.Cancel()

	a.step(ctx, "observability", time.Second, func(c context.Context) error {
		a.obs.Stop(c)
		return nil
	})
	a.step(ctx, "supervisor", 3*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step bounded by max and by ctx's deadline, so one
// component cannot stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

	if dl, ok := ctx.Deadline(); ok {
		max = min(max, time.Until(dl))
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			a.log.Info("stop step finished after deadline",
				logx.String("name", name),
				logx.Err(err),
				logx.Duration("took", time.Since(start)),
			)
		}()
	}
}
