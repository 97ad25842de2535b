package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusdesk/internal/notification"
	"focusdesk/internal/policy"
	"focusdesk/internal/session"
)

func str(s string) *string { return &s }

func activeCtx() context.Context { return session.WithActive(context.Background(), true) }

func nirmiti(body string) notification.RawNotification {
	return notification.RawNotification{
		SourceApp:  "com.whatsapp",
		Title:      str("Nirmiti"),
		Body:       body,
		Category:   notification.CategoryMessage,
		Importance: notification.Known(notification.ImportanceDefault),
	}
}

func TestOnPostedScenario(t *testing.T) {
	e := New(policy.NewFilter(policy.DefaultLists()))

	ev, ok := e.OnPosted(activeCtx(), nirmiti("hi"))
	require.True(t, ok)
	assert.Equal(t, notification.Event{
		Action:    notification.ActionPost,
		ID:        "com.whatsapp|Nirmiti",
		SourceApp: "com.whatsapp",
		Title:     "Nirmiti",
		Body:      "hi",
	}, ev)
}

func TestOnPostedRejects(t *testing.T) {
	e := New(nil)

	summary := nirmiti("hi")
	summary.GroupSummary = true
	_, ok := e.OnPosted(activeCtx(), summary)
	assert.False(t, ok)

	ongoing := nirmiti("hi")
	ongoing.Ongoing = true
	_, ok = e.OnPosted(activeCtx(), ongoing)
	assert.False(t, ok)

	denied := nirmiti("hi")
	denied.SourceApp = "com.amazon.mShop.android.shopping"
	_, ok = e.OnPosted(activeCtx(), denied)
	assert.False(t, ok)

	// No session value in ctx means inactive.
	_, ok = e.OnPosted(context.Background(), nirmiti("hi"))
	assert.False(t, ok)
}

func TestEvaluateReportsReason(t *testing.T) {
	e := New(nil)
	ev, d := e.Evaluate(activeCtx(), nirmiti("   "))
	assert.Equal(t, policy.ReasonEmptyBody, d.Reason)
	assert.Equal(t, notification.Event{}, ev)
}

func TestSameConversationSharesID(t *testing.T) {
	e := New(nil)
	first, ok := e.OnPosted(activeCtx(), nirmiti("hi"))
	require.True(t, ok)
	second, ok := e.OnPosted(activeCtx(), nirmiti("are you there?"))
	require.True(t, ok)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Body, second.Body)
}

func TestRemovalMatchesPost(t *testing.T) {
	e := New(nil)
	post, ok := e.OnPosted(activeCtx(), nirmiti("hi"))
	require.True(t, ok)

	rm, ok := e.OnRemoved(notification.RawRemoval{SourceApp: "com.whatsapp", Title: str("Nirmiti")})
	require.True(t, ok)
	assert.Equal(t, notification.ActionRemove, rm.Action)
	assert.Equal(t, post.ID, rm.ID)
	assert.Empty(t, rm.Body)
}

func TestRemovalBypassesFilter(t *testing.T) {
	e := New(nil)
	// Denied app, inactive session: removal still goes through.
	rm, ok := e.OnRemoved(notification.RawRemoval{SourceApp: "com.flipkart.android", Title: str("Sale")})
	require.True(t, ok)
	assert.Equal(t, notification.Key("com.flipkart.android|Sale"), rm.ID)
}

func TestRemovalWithoutTitleDropped(t *testing.T) {
	e := New(nil)
	_, ok := e.OnRemoved(notification.RawRemoval{SourceApp: "com.whatsapp"})
	assert.False(t, ok)
}
