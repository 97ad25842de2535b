package notification

// KeySeparator joins source app and title in a Key. Source apps are package
// identifiers and never contain it; titles may, in which case two distinct
// pairs can alias. Keys are only ever rebuilt from the same two fields and
// never split, so this is tolerated.
const KeySeparator = "|"

// Key identifies one conversation: every post, update and removal for the same
// (source app, title) pair shares it.
type Key string

// DeriveKey returns sourceApp + "|" + title.
func DeriveKey(sourceApp, title string) Key {
	return Key(sourceApp + KeySeparator + title)
}

func (k Key) String() string { return string(k) }
