// Package prefs persists small key/value preferences in the preferences
// table. Values are opaque strings; callers own their own encoding.
//
// Well-known keys for the rider profile survey are declared as constants
// so the HTTP layer and any future consumers agree on spelling. Keys
// outside that set are accepted: the table is a general-purpose scratch
// space, not a closed schema.
package prefs
