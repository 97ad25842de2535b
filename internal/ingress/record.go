package ingress

import (
	"focusdesk/internal/notification"
)

// Kind tells the dispatcher what a record carries.
type Kind string

const (
	KindPosted  Kind = "posted"
	KindRemoved Kind = "removed"
	KindSession Kind = "session"
)

// Record is one frame from the platform shim.
type Record struct {
	Kind         Kind    `json:"kind"`
	Package      string  `json:"package"`
	Title        *string `json:"title"`
	Text         *string `json:"text"`
	Ongoing      bool    `json:"ongoing"`
	GroupSummary bool    `json:"group_summary"`
	Category     string  `json:"category"`
	Importance   *string `json:"importance"`
	Active       *bool   `json:"active"`
}

// Notification maps a posted record. A null text becomes "".
func (r Record) Notification() notification.RawNotification {
	var body string
	if r.Text != nil {
		body = *r.Text
	}
	return notification.RawNotification{
		SourceApp:    r.Package,
		Title:        r.Title,
		Body:         body,
		Ongoing:      r.Ongoing,
		GroupSummary: r.GroupSummary,
		Category:     notification.ParseCategory(r.Category),
		Importance:   notification.ParseImportance(r.Importance),
	}
}

func (r Record) Removal() notification.RawRemoval {
	return notification.RawRemoval{SourceApp: r.Package, Title: r.Title}
}
