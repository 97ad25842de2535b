package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Decision("admit", "allowed_app")
	m.Removal("forwarded")
	m.Forwarded("POST")
	m.Dropped("POST")
	m.Record("posted")
	m.Session(true)
	m.Conn("events")()
	m.SubscriberFunc(func() bool { return true })
	assert.Nil(t, m.Registry())
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Decision("reject", "ongoing")
	m.Decision("reject", "ongoing")
	m.Dropped("REMOVE")
	m.Session(true)

	out := scrape(t, m)
	assert.Contains(t, out, `focusdesk_policy_decisions_total{reason="ongoing",verdict="reject"} 2`)
	assert.Contains(t, out, `focusdesk_forwarder_dropped_total{action="REMOVE"} 1`)
	assert.Contains(t, out, "focusdesk_session_active 1")

	done := m.Conn("events")
	assert.Contains(t, scrape(t, m), `focusdesk_transport_connections{endpoint="events"} 1`)
	done()
	assert.Contains(t, scrape(t, m), `focusdesk_transport_connections{endpoint="events"} 0`)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.SubscriberFunc(func() bool { return true })
	m.Forwarded("POST")

	out := scrape(t, m)
	assert.Contains(t, out, `focusdesk_forwarder_delivered_total{action="POST"} 1`)
	assert.Contains(t, out, "focusdesk_forwarder_subscribed 1")
	assert.Contains(t, out, "go_goroutines")
}
