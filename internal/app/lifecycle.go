package app

import (
	"context"

	"focusdesk/internal/eventbus"
	logx "focusdesk/pkg/logx"
)

// logSignals logs lifecycle signals until ctx is done. Drops are frequent
// while no consumer is attached, so they stay at debug.
func (a *App) logSignals(ctx context.Context, events <-chan eventbus.Event) {
	log := a.log.With(logx.String("comp", "lifecycle"))
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			logSignal(log, e)
			switch e.Type {
			case eventbus.ForwarderSubscribed, eventbus.ForwarderUnsubscribed, eventbus.SessionChanged:
				a.reportStatus(a.cfgm.Get())
			}
		}
	}
}

func logSignal(log logx.Logger, e eventbus.Event) {
	typ := logx.String("type", string(e.Type))
	switch d := e.Data.(type) {
	case eventbus.SubscriptionEvent:
		if e.Type == eventbus.ForwarderSubscribed {
			log.Info("consumer attached", typ, logx.Uint64("id", d.ID), logx.Uint64("replaced", d.Replaced))
			return
		}
		log.Info("consumer detached", typ, logx.Uint64("id", d.ID))
	case eventbus.DropEvent:
		if d.Error != "" {
			log.Warn("consumer sink failed", typ, logx.String("action", d.Action), logx.String("key", d.Key), logx.String("err", d.Error))
			return
		}
		log.Debug("event dropped", typ, logx.String("action", d.Action), logx.String("key", d.Key))
	case eventbus.SessionEvent:
		log.Info("session changed", typ, logx.Bool("active", d.Active))
	case eventbus.ConfigEvent:
		log.Debug("config applied", typ, logx.String("hash", d.Hash), logx.Strings("sections", d.Sections))
	default:
		log.Debug("event", typ, logx.Any("data", e.Data))
	}
}
