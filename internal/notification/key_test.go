package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	assert.Equal(t, Key("com.whatsapp|Nirmiti"), DeriveKey("com.whatsapp", "Nirmiti"))
	assert.Equal(t, DeriveKey("com.whatsapp", "Nirmiti"), DeriveKey("com.whatsapp", "Nirmiti"))
}

func TestDeriveKeyDistinctPairs(t *testing.T) {
	pairs := [][2]string{
		{"com.whatsapp", "Nirmiti"},
		{"com.whatsapp", "Mom"},
		{"com.google.android.apps.messaging", "Nirmiti"},
		{"com.whatsapp", ""},
		{"", "Nirmiti"},
	}
	seen := map[Key][2]string{}
	for _, p := range pairs {
		k := DeriveKey(p[0], p[1])
		if prev, ok := seen[k]; ok {
			t.Fatalf("key %q shared by %v and %v", k, prev, p)
		}
		seen[k] = p
	}
}

func TestDeriveKeySeparatorInTitleAliases(t *testing.T) {
	// Known limitation: the key is never parsed, so aliasing is tolerated.
	assert.Equal(t, DeriveKey("a", "b|c"), DeriveKey("a|b", "c"))
}

func TestImportanceLookup(t *testing.T) {
	cases := []struct {
		name      string
		lookup    ImportanceLookup
		important bool
		level     Importance
	}{
		{"failed lookup is fail-open", Unknown(), true, ImportanceUnknown},
		{"unspecified", Known(ImportanceUnknown), false, ImportanceUnknown},
		{"low", Known(ImportanceLow), false, ImportanceLow},
		{"default", Known(ImportanceDefault), true, ImportanceDefault},
		{"max", Known(ImportanceMax), true, ImportanceMax},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.important, tc.lookup.Important())
			assert.Equal(t, tc.level, tc.lookup.Level())
		})
	}
}

func TestParseImportance(t *testing.T) {
	s := func(v string) *string { return &v }
	assert.Equal(t, Unknown(), ParseImportance(nil))
	assert.Equal(t, Unknown(), ParseImportance(s("urgent")))
	assert.Equal(t, Known(ImportanceHigh), ParseImportance(s(" HIGH ")))
	assert.Equal(t, Known(ImportanceUnknown), ParseImportance(s("none")))
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryMessage, ParseCategory("msg"))
	assert.Equal(t, CategoryMessage, ParseCategory("message"))
	assert.Equal(t, CategoryOther, ParseCategory("promo"))
	assert.Equal(t, CategoryOther, ParseCategory(""))
	assert.True(t, CategoryAlarm.IsCommunication())
	assert.False(t, CategoryOther.IsCommunication())
}
