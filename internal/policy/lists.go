package policy

import (
	"sort"
	"strings"
)

// DefaultAllow are apps admitted whenever their notification is important.
var DefaultAllow = []string{
	"com.whatsapp",
	"com.google.android.apps.messaging",
}

// DefaultDeny are apps that are never admitted.
var DefaultDeny = []string{
	"com.amazon.mShop.android.shopping",
	"com.flipkart.android",
	"in.swiggy.android",
	"com.application.zomato",
	"com.facebook.katana",
}

// Lists is an immutable pair of source-app sets. Deny is checked first, so an
// app present in both is denied.
type Lists struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

// NewLists builds Lists from app identifiers. Blank entries are ignored.
func NewLists(allow, deny []string) Lists {
	return Lists{allow: toSet(allow), deny: toSet(deny)}
}

// DefaultLists returns the built-in allow and deny lists.
func DefaultLists() Lists { return NewLists(DefaultAllow, DefaultDeny) }

func toSet(apps []string) map[string]struct{} {
	m := make(map[string]struct{}, len(apps))
	for _, a := range apps {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		m[a] = struct{}{}
	}
	return m
}

func (l Lists) Allowed(app string) bool {
	_, ok := l.allow[app]
	return ok
}

func (l Lists) Denied(app string) bool {
	_, ok := l.deny[app]
	return ok
}

// Overlap returns apps present in both lists (they are treated as denied).
func (l Lists) Overlap() []string {
	var out []string
	for a := range l.allow {
		if _, ok := l.deny[a]; ok {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Sizes returns the number of allow and deny entries.
func (l Lists) Sizes() (allow, deny int) { return len(l.allow), len(l.deny) }
