package notification

import "strings"

// Category is the platform category of a notification.
type Category int

const (
	CategoryOther Category = iota
	CategoryEmail
	CategoryMessage
	CategoryCall
	CategoryEvent
	CategoryAlarm
)

// ParseCategory maps platform category names ("email", "msg", "call", "event",
// "alarm") to a Category. Anything else is CategoryOther.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return CategoryEmail
	case "msg", "message":
		return CategoryMessage
	case "call":
		return CategoryCall
	case "event":
		return CategoryEvent
	case "alarm":
		return CategoryAlarm
	default:
		return CategoryOther
	}
}

// IsCommunication reports whether c is a person-to-person or time-critical category.
func (c Category) IsCommunication() bool {
	switch c {
	case CategoryEmail, CategoryMessage, CategoryCall, CategoryEvent, CategoryAlarm:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	switch c {
	case CategoryEmail:
		return "email"
	case CategoryMessage:
		return "msg"
	case CategoryCall:
		return "call"
	case CategoryEvent:
		return "event"
	case CategoryAlarm:
		return "alarm"
	default:
		return "other"
	}
}

// Importance is the ordered ranking importance of a notification.
type Importance int

const (
	ImportanceUnknown Importance = iota
	ImportanceMin
	ImportanceLow
	ImportanceDefault
	ImportanceHigh
	ImportanceMax
)

func (i Importance) String() string {
	switch i {
	case ImportanceMin:
		return "min"
	case ImportanceLow:
		return "low"
	case ImportanceDefault:
		return "default"
	case ImportanceHigh:
		return "high"
	case ImportanceMax:
		return "max"
	default:
		return "unknown"
	}
}

// ImportanceLookup is the result of asking the platform for a notification's
// importance: either a known level or a failed lookup.
type ImportanceLookup struct {
	level Importance
	known bool
}

// Known returns a successful lookup.
func Known(level Importance) ImportanceLookup {
	return ImportanceLookup{level: level, known: true}
}

// Unknown returns a failed lookup.
func Unknown() ImportanceLookup { return ImportanceLookup{} }

// ParseImportance maps platform importance names to a lookup. A missing or
// unrecognized name is a failed lookup.
func ParseImportance(s *string) ImportanceLookup {
	if s == nil {
		return Unknown()
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "none", "unspecified":
		return Known(ImportanceUnknown)
	case "min":
		return Known(ImportanceMin)
	case "low":
		return Known(ImportanceLow)
	case "default":
		return Known(ImportanceDefault)
	case "high":
		return Known(ImportanceHigh)
	case "max":
		return Known(ImportanceMax)
	default:
		return Unknown()
	}
}

// IsKnown reports whether the lookup succeeded.
func (l ImportanceLookup) IsKnown() bool { return l.known }

// Level returns the known level, or ImportanceUnknown if the lookup failed.
func (l ImportanceLookup) Level() Importance {
	if !l.known {
		return ImportanceUnknown
	}
	return l.level
}

// Important is fail-open: a failed lookup counts as important.
func (l ImportanceLookup) Important() bool {
	if !l.known {
		return true
	}
	return l.level >= ImportanceDefault
}

func (l ImportanceLookup) String() string {
	if !l.known {
		return "lookup_failed"
	}
	return l.level.String()
}

// RawNotification is a posted notification as delivered by the ingress adapter.
type RawNotification struct {
	SourceApp    string
	Title        *string // nil: the platform supplied no title
	Body         string
	Ongoing      bool
	GroupSummary bool
	Category     Category
	Importance   ImportanceLookup
}

// RawRemoval is a removal signal as delivered by the ingress adapter.
type RawRemoval struct {
	SourceApp string
	Title     *string
}

// Action is the kind of an outbound Event.
type Action string

const (
	ActionPost   Action = "POST"
	ActionRemove Action = "REMOVE"
)

// Event is an admit or remove decision for the downstream consumer.
// Remove events carry no body.
type Event struct {
	Action    Action
	ID        Key
	SourceApp string
	Title     string
	Body      string
}
