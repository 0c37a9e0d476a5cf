package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/extract"
	"github.com/nao1215/cvsync/internal/fetch"
	"github.com/nao1215/cvsync/internal/model"
	"github.com/nao1215/cvsync/internal/patch"
	"github.com/nao1215/cvsync/internal/render"
)

var (
	// ErrNoPage is returned when a step needs the fetched page but the
	// fetch step did not run or failed.
	ErrNoPage = errors.New("no fetched page in report")

	// ErrNoExtraction is returned when a step needs extracted items but
	// the extract step did not run or failed.
	ErrNoExtraction = errors.New("no extraction in report")
)

// FetchStep retrieves the Notion page.
type FetchStep struct {
	fetcher fetch.Fetcher

	// timeout bounds the fetch. Zero means only the parent context applies.
	timeout time.Duration

	logger *slog.Logger
}

// FetchStepOption configures a FetchStep.
type FetchStepOption func(*FetchStep)

// WithFetchTimeout bounds the fetch.
func WithFetchTimeout(d time.Duration) FetchStepOption {
	return func(s *FetchStep) {
		s.timeout = d
	}
}

// WithFetchLogger sets a custom logger for the fetch step.
func WithFetchLogger(logger *slog.Logger) FetchStepOption {
	return func(s *FetchStep) {
		s.logger = logger
	}
}

// NewFetchStep creates a step that fetches report.URL with fetcher.
func NewFetchStep(fetcher fetch.Fetcher, opts ...FetchStepOption) *FetchStep {
	s := &FetchStep{
		fetcher: fetcher,
		timeout: config.DefaultTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, report *model.SyncReport) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report.Renderer = s.fetcher.Name()

	page, err := s.fetcher.Fetch(ctx, report.URL)
	if page != nil {
		report.Page = page
	}
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	s.logger.Info("page fetched",
		"url", report.URL,
		"renderer", report.Renderer,
		"bytes", page.Size,
		"hash", page.Hash,
	)
	return nil
}

// ExtractStep parses the fetched page into sections.
type ExtractStep struct {
	rules  map[model.SectionKind]config.SectionRules
	logger *slog.Logger
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractRules overrides section keywords.
func WithExtractRules(rules map[model.SectionKind]config.SectionRules) ExtractStepOption {
	return func(s *ExtractStep) {
		s.rules = rules
	}
}

// WithExtractLogger sets a custom logger for the extract step.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		s.logger = logger
	}
}

// NewExtractStep creates a new extraction step.
func NewExtractStep(opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extract step. A missing section header is recorded as a
// warning; the section is then empty and its target is left untouched.
func (s *ExtractStep) Do(ctx context.Context, report *model.SyncReport) error {
	if report.Page == nil || len(report.Page.Raw) == 0 {
		return ErrNoPage
	}

	extractor, err := extract.New(report.URL,
		extract.WithRules(s.rules),
		extract.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}

	result, err := extractor.ExtractBytes(ctx, report.Page.Raw)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	report.Extraction = result.Extraction
	for _, w := range result.Warnings {
		report.AddWarning(w.Error())
	}

	s.logger.Info("sections extracted",
		"research", report.Count(model.SectionResearch),
		"lectures", report.Count(model.SectionLectures),
		"conferences", report.Count(model.SectionConferences),
	)
	return nil
}

// RenderStep turns the extracted items into HTML fragments.
type RenderStep struct {
	logger *slog.Logger
}

// NewRenderStep creates a new render step.
func NewRenderStep(logger *slog.Logger) *RenderStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderStep{logger: logger}
}

// Name returns the step name.
func (s *RenderStep) Name() string {
	return "render"
}

// Do executes the render step.
func (s *RenderStep) Do(_ context.Context, report *model.SyncReport) error {
	if report.Extraction == nil {
		return ErrNoExtraction
	}

	for _, kind := range model.Sections {
		fragment, err := render.Section(kind, report.Extraction)
		if err != nil {
			return fmt.Errorf("render %s failed: %w", kind, err)
		}
		report.SetFragment(kind, fragment)
		s.logger.Debug("fragment rendered", "section", kind, "bytes", len(fragment))
	}
	report.ComputeContentHash()

	return nil
}

// PatchStep writes the fragments into the index file.
type PatchStep struct {
	targets map[model.SectionKind]string
	dryRun  bool
	logger  *slog.Logger
}

// PatchStepOption configures a PatchStep.
type PatchStepOption func(*PatchStep)

// WithPatchTargets sets the element id for each section.
func WithPatchTargets(targets map[model.SectionKind]string) PatchStepOption {
	return func(s *PatchStep) {
		s.targets = targets
	}
}

// WithPatchDryRun disables writing the file.
func WithPatchDryRun(dryRun bool) PatchStepOption {
	return func(s *PatchStep) {
		s.dryRun = dryRun
	}
}

// WithPatchLogger sets a custom logger for the patch step.
func WithPatchLogger(logger *slog.Logger) PatchStepOption {
	return func(s *PatchStep) {
		s.logger = logger
	}
}

// NewPatchStep creates a new patch step.
func NewPatchStep(opts ...PatchStepOption) *PatchStep {
	s := &PatchStep{
		targets: config.DefaultTargets(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PatchStep) Name() string {
	return "patch"
}

// Do executes the patch step.
func (s *PatchStep) Do(_ context.Context, report *model.SyncReport) error {
	if report.Extraction == nil {
		return ErrNoExtraction
	}

	targets := make([]patch.Target, 0, len(model.Sections))
	for _, kind := range model.Sections {
		targets = append(targets, patch.Target{
			Section:   kind,
			ElementID: s.targets[kind],
			Fragment:  report.Fragment(kind),
			Items:     report.Count(kind),
		})
	}

	report.DryRun = s.dryRun
	results, err := patch.New(report.IndexFile,
		patch.WithDryRun(s.dryRun),
		patch.WithLogger(s.logger),
	).Apply(targets)
	if err != nil {
		return fmt.Errorf("patch failed: %w", err)
	}

	for _, r := range results {
		report.AddTarget(r)
		if r.Status == model.TargetMissing {
			report.AddWarning(fmt.Sprintf("element #%s for %s not found in %s", r.ElementID, r.Section, report.IndexFile))
		}
	}

	s.logger.Info("index file patched",
		"file", report.IndexFile,
		"updated", report.UpdatedCount(),
		"dry_run", s.dryRun,
	)
	return nil
}

// DefaultPipeline creates the fetch, extract, render and patch pipeline
// for cfg. The fetcher is passed in so callers and tests can substitute it.
func DefaultPipeline(cfg *config.Config, fetcher fetch.Fetcher, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddSteps(
		NewFetchStep(fetcher,
			WithFetchTimeout(cfg.Timeout),
			WithFetchLogger(p.logger),
		),
		NewExtractStep(
			WithExtractRules(cfg.Sections),
			WithExtractLogger(p.logger),
		),
		NewRenderStep(p.logger),
		NewPatchStep(
			WithPatchTargets(cfg.Targets),
			WithPatchDryRun(cfg.DryRun),
			WithPatchLogger(p.logger),
		),
	)

	return p
}
