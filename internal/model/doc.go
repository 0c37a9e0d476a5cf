// Package model defines the data structures shared across cvsync.
//
// This package contains the following main types:
//   - Page: The fetched Notion document
//   - Publication and Lecture: Items extracted from the page
//   - Extraction: The three extracted sections of a single run
//   - SyncReport: The result of one sync run, persisted in the history database
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
