package wire

import "focusdesk/internal/notification"

// Message is one frame on the consumer events channel.
//
// POST frames carry package, title and text. REMOVE frames carry only action
// and id; the other fields are null.
type Message struct {
	Action  string  `json:"action"`
	ID      string  `json:"id"`
	Package *string `json:"package"`
	Title   *string `json:"title"`
	Text    *string `json:"text"`
}

// FromEvent builds the frame for ev.
func FromEvent(ev notification.Event) Message {
	m := Message{Action: string(ev.Action), ID: ev.ID.String()}
	if ev.Action == notification.ActionPost {
		pkg, title, text := ev.SourceApp, ev.Title, ev.Body
		m.Package, m.Title, m.Text = &pkg, &title, &text
	}
	return m
}

// Event converts a received frame back into an event the way the consumer
// reads it: a missing action means POST and a missing id means "".
func (m Message) Event() notification.Event {
	ev := notification.Event{Action: notification.Action(m.Action), ID: notification.Key(m.ID)}
	if ev.Action == "" {
		ev.Action = notification.ActionPost
	}
	if m.Package != nil {
		ev.SourceApp = *m.Package
	}
	if m.Title != nil {
		ev.Title = *m.Title
	}
	if m.Text != nil && ev.Action == notification.ActionPost {
		ev.Body = *m.Text
	}
	return ev
}

// Request is one frame on the consumer methods channel.
type Request struct {
	Method string `json:"method"`
}

// Reply answers a Request.
type Reply struct {
	Method string  `json:"method"`
	Result *bool   `json:"result"`
	Error  *string `json:"error"`
}
