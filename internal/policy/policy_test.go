package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"focusdesk/internal/notification"
)

func str(s string) *string { return &s }

func whatsapp() notification.RawNotification {
	return notification.RawNotification{
		SourceApp:  "com.whatsapp",
		Title:      str("Nirmiti"),
		Body:       "hi",
		Category:   notification.CategoryMessage,
		Importance: notification.Known(notification.ImportanceDefault),
	}
}

func TestDecide(t *testing.T) {
	lists := DefaultLists()

	cases := []struct {
		name   string
		mutate func(r *notification.RawNotification)
		active bool
		want   Decision
	}{
		{"allowed app default importance", nil, true, admit(ReasonAllowedApp)},
		{"session inactive", nil, false, reject(ReasonSessionInactive)},
		{"ongoing", func(r *notification.RawNotification) { r.Ongoing = true }, true, reject(ReasonOngoing)},
		{"group summary", func(r *notification.RawNotification) { r.GroupSummary = true }, true, reject(ReasonGroupSummary)},
		{"denied app", func(r *notification.RawNotification) { r.SourceApp = "com.flipkart.android" }, true, reject(ReasonDeniedApp)},
		{"deny checked before ongoing", func(r *notification.RawNotification) {
			r.SourceApp = "com.facebook.katana"
			r.Ongoing = true
		}, true, reject(ReasonDeniedApp)},
		{"allowed app low importance", func(r *notification.RawNotification) {
			r.Importance = notification.Known(notification.ImportanceLow)
		}, true, reject(ReasonNotImportant)},
		{"allowed app failed lookup is fail-open", func(r *notification.RawNotification) {
			r.Importance = notification.Unknown()
		}, true, admit(ReasonAllowedApp)},
		{"communication from unlisted app", func(r *notification.RawNotification) {
			r.SourceApp = "org.thoughtcrime.securesms"
		}, true, admit(ReasonCommunication)},
		{"communication failed lookup", func(r *notification.RawNotification) {
			r.SourceApp = "com.slack"
			r.Importance = notification.Unknown()
		}, true, admit(ReasonCommunication)},
		{"other category high importance", func(r *notification.RawNotification) {
			r.SourceApp = "com.bank"
			r.Category = notification.CategoryOther
			r.Importance = notification.Known(notification.ImportanceHigh)
		}, true, admit(ReasonHighImportance)},
		{"other category default importance", func(r *notification.RawNotification) {
			r.SourceApp = "com.news"
			r.Category = notification.CategoryOther
		}, true, reject(ReasonNotImportant)},
		{"other category failed lookup", func(r *notification.RawNotification) {
			r.SourceApp = "com.news"
			r.Category = notification.CategoryOther
			r.Importance = notification.Unknown()
		}, true, reject(ReasonNotImportant)},
		{"missing title", func(r *notification.RawNotification) { r.Title = nil }, true, reject(ReasonMissingTitle)},
		{"blank body", func(r *notification.RawNotification) { r.Body = " \n\t" }, true, reject(ReasonEmptyBody)},
		{"empty title is present", func(r *notification.RawNotification) { r.Title = str("") }, true, admit(ReasonAllowedApp)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := whatsapp()
			if tc.mutate != nil {
				tc.mutate(&raw)
			}
			assert.Equal(t, tc.want, Decide(lists, raw, tc.active))
		})
	}
}

func TestDecideDeniedRegardlessOfFields(t *testing.T) {
	lists := DefaultLists()
	for _, imp := range []notification.ImportanceLookup{
		notification.Unknown(),
		notification.Known(notification.ImportanceMax),
	} {
		for _, cat := range []notification.Category{notification.CategoryMessage, notification.CategoryOther} {
			raw := notification.RawNotification{
				SourceApp:  "com.amazon.mShop.android.shopping",
				Title:      str("Deal"),
				Body:       "50% off",
				Category:   cat,
				Importance: imp,
			}
			assert.False(t, Decide(lists, raw, true).Admitted())
		}
	}
}

func TestAppInBothListsIsDenied(t *testing.T) {
	lists := NewLists([]string{"com.whatsapp"}, []string{"com.whatsapp"})
	assert.Equal(t, []string{"com.whatsapp"}, lists.Overlap())
	assert.Equal(t, reject(ReasonDeniedApp), Decide(lists, whatsapp(), true))
}

func TestFilterSetLists(t *testing.T) {
	f := NewFilter(DefaultLists())
	assert.True(t, f.Decide(whatsapp(), true).Admitted())

	f.SetLists(NewLists(nil, []string{"com.whatsapp", " "}))
	assert.Equal(t, reject(ReasonDeniedApp), f.Decide(whatsapp(), true))

	allow, deny := f.Lists().Sizes()
	assert.Equal(t, 0, allow)
	assert.Equal(t, 1, deny)
}
