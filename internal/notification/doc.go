// Package notification holds the data model shared by the filtering engine and
// the forwarder: raw OS notification inputs, the derived dedup Key, and the
// outbound Event.
//
// # Identity
//
// A conversation is identified by Key, derived from the source app and the
// title (sender). OS-assigned notification handles are never used because they
// are not stable across post, update and remove for the same conversation.
package notification
