package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TargetStatus describes what happened to one target element of the index file.
type TargetStatus string

const (
	// TargetUpdated means the element's children were replaced.
	TargetUpdated TargetStatus = "updated"

	// TargetSkippedEmpty means no fragment was generated for the section,
	// so the element was left untouched.
	TargetSkippedEmpty TargetStatus = "skipped_empty"

	// TargetMissing means no element with the target id exists in the file.
	TargetMissing TargetStatus = "missing"

	// TargetDryRun means the element would have been updated.
	TargetDryRun TargetStatus = "dry_run"
)

// TargetResult is the outcome of patching one target element.
type TargetResult struct {
	// Section is the section whose fragment belongs in the element.
	Section SectionKind `json:"section"`

	// ElementID is the id attribute of the target element.
	ElementID string `json:"element_id"`

	// Status is the patch outcome.
	Status TargetStatus `json:"status"`

	// Items is the number of items in the fragment.
	Items int `json:"items"`
}

// SyncReport is the result of one sync run.
// Pipeline steps fill it in as they execute.
type SyncReport struct {
	// RunID uniquely identifies the run in the history database.
	RunID string `json:"run_id"`

	// URL is the Notion page URL.
	URL string `json:"url"`

	// IndexFile is the path of the patched HTML file.
	IndexFile string `json:"index_file"`

	// Renderer is the name of the fetcher used ("chrome" or "http").
	Renderer string `json:"renderer,omitempty"`

	// DryRun is true when the index file was not written.
	DryRun bool `json:"dry_run"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Page is the fetched document.
	Page *Page `json:"page,omitempty"`

	// Extraction holds the extracted sections.
	Extraction *Extraction `json:"extraction,omitempty"`

	// Fragments maps each section to its generated markup.
	// A section with no items has an empty fragment.
	Fragments map[SectionKind]string `json:"fragments,omitempty"`

	// ContentHash is the SHA-256 hash of the three fragments.
	ContentHash string `json:"content_hash,omitempty"`

	// Targets holds one result per target element.
	Targets []TargetResult `json:"targets,omitempty"`

	// Warnings collects non-fatal problems such as a missing section header.
	Warnings []string `json:"warnings,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut indicates the run was cancelled before completing.
	TimedOut bool `json:"timed_out"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewSyncReport creates a report for a run against the given page and file.
func NewSyncReport(pageURL, indexFile string) *SyncReport {
	return &SyncReport{
		RunID:     uuid.NewString(),
		URL:       pageURL,
		IndexFile: indexFile,
		StartedAt: time.Now(),
		Fragments: make(map[SectionKind]string),
	}
}

// Fragment returns the generated markup for a section.
func (r *SyncReport) Fragment(kind SectionKind) string {
	return r.Fragments[kind]
}

// SetFragment stores the generated markup for a section.
func (r *SyncReport) SetFragment(kind SectionKind, fragment string) {
	if r.Fragments == nil {
		r.Fragments = make(map[SectionKind]string)
	}
	r.Fragments[kind] = fragment
}

// AddWarning records a non-fatal problem.
func (r *SyncReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddTarget records the outcome of patching one element.
func (r *SyncReport) AddTarget(result TargetResult) {
	r.Targets = append(r.Targets, result)
}

// UpdatedCount returns the number of targets that were (or in a dry run
// would have been) updated.
func (r *SyncReport) UpdatedCount() int {
	n := 0
	for _, t := range r.Targets {
		if t.Status == TargetUpdated || t.Status == TargetDryRun {
			n++
		}
	}
	return n
}

// Count returns the number of extracted items for a section.
func (r *SyncReport) Count(kind SectionKind) int {
	return r.Extraction.Count(kind)
}

// ComputeContentHash sets ContentHash from the fragments in section order.
// Sections are separated by a NUL byte so that moving markup between
// sections changes the hash.
func (r *SyncReport) ComputeContentHash() {
	h := sha256.New()
	for _, kind := range Sections {
		h.Write([]byte(kind))
		h.Write([]byte{0})
		h.Write([]byte(r.Fragments[kind]))
		h.Write([]byte{0})
	}
	r.ContentHash = hex.EncodeToString(h.Sum(nil))
}

// Fail records err as the error that stopped the run.
func (r *SyncReport) Fail(err error) {
	if err == nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Succeeded reports whether the run finished without a fatal error.
func (r *SyncReport) Succeeded() bool {
	return r.ErrorMessage == "" && !r.TimedOut
}

// Finish stamps FinishedAt.
func (r *SyncReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the wall time of the run. Zero until Finish is called.
func (r *SyncReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
