// Package pipeline runs a sync as a sequence of steps over a shared report.
//
// A sync has four steps: fetch the Notion page, extract the sections,
// render the fragments and patch the index file. Each step reads what the
// previous steps stored in the model.SyncReport and adds its own results,
// so the report doubles as the run's audit trail.
package pipeline
