// Package session tracks whether the host surface is in front of the user.
//
// The Flag is written by whoever observes foreground/background transitions
// and read once per ingress callback; the snapshot then travels with the
// context so decision code never reads shared state directly.
package session

import (
	"context"
	"sync/atomic"
)

// Flag is the latest known foreground state. The zero value is inactive.
type Flag struct {
	active atomic.Bool
}

// Set stores active and reports whether the value changed.
func (f *Flag) Set(active bool) bool {
	return f.active.Swap(active) != active
}

func (f *Flag) Active() bool { return f.active.Load() }

type contextKey struct{}

// WithActive returns a context carrying the session state for one decision.
func WithActive(ctx context.Context, active bool) context.Context {
	return context.WithValue(ctx, contextKey{}, active)
}

// Active reads the session state from ctx. A context without one is inactive.
func Active(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(contextKey{}).(bool)
	return v
}
