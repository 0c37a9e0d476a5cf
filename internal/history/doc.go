// Package history records sync runs in a local SQLite database.
//
// Each run is stored as one row holding the summary columns used for
// listings and the full report as JSON. The database lives in the XDG data
// directory by default and uses modernc.org/sqlite, so no CGO is required.
package history
