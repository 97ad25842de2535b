// Package engine turns one raw ingress callback into at most one outbound
// notification.Event.
//
// The engine keeps no state between calls. Removal matching works only because
// notification.DeriveKey is a pure function of (source app, title): a removal
// computed later from the same pair always yields the key emitted at post time.
package engine

import (
	"context"

	"focusdesk/internal/notification"
	"focusdesk/internal/policy"
	"focusdesk/internal/session"
)

type Engine struct {
	filter *policy.Filter
}

func New(filter *policy.Filter) *Engine {
	if filter == nil {
		filter = policy.NewFilter(policy.DefaultLists())
	}
	return &Engine{filter: filter}
}

// Evaluate runs the policy filter with the session state carried by ctx and,
// on admit, builds the POST event. The returned event is the zero value on reject.
func (e *Engine) Evaluate(ctx context.Context, raw notification.RawNotification) (notification.Event, policy.Decision) {
	d := e.filter.Decide(raw, session.Active(ctx))
	if !d.Admitted() {
		return notification.Event{}, d
	}
	// Decide never admits without a title.
	title := *raw.Title
	return notification.Event{
		Action:    notification.ActionPost,
		ID:        notification.DeriveKey(raw.SourceApp, title),
		SourceApp: raw.SourceApp,
		Title:     title,
		Body:      raw.Body,
	}, d
}

// OnPosted returns the POST event for raw, or false if the filter rejects it.
func (e *Engine) OnPosted(ctx context.Context, raw notification.RawNotification) (notification.Event, bool) {
	ev, d := e.Evaluate(ctx, raw)
	return ev, d.Admitted()
}

// OnRemoved returns the REMOVE event for rm. Removals bypass the filter so a
// previously admitted item can always be withdrawn. Without a title the key
// cannot be rebuilt and the removal is dropped.
func (e *Engine) OnRemoved(rm notification.RawRemoval) (notification.Event, bool) {
	if rm.Title == nil {
		return notification.Event{}, false
	}
	return notification.Event{
		Action:    notification.ActionRemove,
		ID:        notification.DeriveKey(rm.SourceApp, *rm.Title),
		SourceApp: rm.SourceApp,
		Title:     *rm.Title,
	}, true
}
