// Package policy decides whether a posted notification is relevant while the
// user is focused on the host surface.
package policy

import (
	"strings"
	"sync/atomic"

	"focusdesk/internal/notification"
)

// Verdict is the binary outcome of a decision.
type Verdict int

const (
	Reject Verdict = iota
	Admit
)

func (v Verdict) String() string {
	if v == Admit {
		return "admit"
	}
	return "reject"
}

// Reason names the rule that produced a Decision. It is informational only
// (logs, metrics); callers must branch on Verdict.
type Reason string

const (
	ReasonSessionInactive Reason = "session_inactive"
	ReasonDeniedApp       Reason = "denied_app"
	ReasonOngoing         Reason = "ongoing"
	ReasonGroupSummary    Reason = "group_summary"
	ReasonNotImportant    Reason = "not_important"
	ReasonMissingTitle    Reason = "missing_title"
	ReasonEmptyBody       Reason = "empty_body"

	ReasonAllowedApp     Reason = "allowed_app"
	ReasonCommunication  Reason = "communication"
	ReasonHighImportance Reason = "high_importance"
)

type Decision struct {
	Verdict Verdict
	Reason  Reason
}

func (d Decision) Admitted() bool { return d.Verdict == Admit }

func admit(r Reason) Decision  { return Decision{Verdict: Admit, Reason: r} }
func reject(r Reason) Decision { return Decision{Verdict: Reject, Reason: r} }

// Decide evaluates raw against lists. It is pure and short-circuits on the
// first rejecting rule.
func Decide(lists Lists, raw notification.RawNotification, sessionActive bool) Decision {
	if !sessionActive {
		return reject(ReasonSessionInactive)
	}
	if lists.Denied(raw.SourceApp) {
		return reject(ReasonDeniedApp)
	}
	if raw.Ongoing {
		return reject(ReasonOngoing)
	}
	if raw.GroupSummary {
		return reject(ReasonGroupSummary)
	}

	important := raw.Importance.Important()

	var d Decision
	switch {
	case lists.Allowed(raw.SourceApp) && important:
		d = admit(ReasonAllowedApp)
	case raw.Category.IsCommunication() && important:
		d = admit(ReasonCommunication)
	case raw.Importance.Level() >= notification.ImportanceHigh:
		d = admit(ReasonHighImportance)
	default:
		return reject(ReasonNotImportant)
	}

	if raw.Title == nil {
		return reject(ReasonMissingTitle)
	}
	if strings.TrimSpace(raw.Body) == "" {
		return reject(ReasonEmptyBody)
	}
	return d
}

// Filter applies Decide against lists that can be swapped at runtime.
// Safe for concurrent use.
type Filter struct {
	lists atomic.Pointer[Lists]
}

func NewFilter(lists Lists) *Filter {
	f := &Filter{}
	f.SetLists(lists)
	return f
}

// SetLists replaces both lists at once; the next decision sees the new value.
func (f *Filter) SetLists(lists Lists) {
	l := lists
	f.lists.Store(&l)
}

func (f *Filter) Lists() Lists {
	if l := f.lists.Load(); l != nil {
		return *l
	}
	return Lists{}
}

func (f *Filter) Decide(raw notification.RawNotification, sessionActive bool) Decision {
	return Decide(f.Lists(), raw, sessionActive)
}
