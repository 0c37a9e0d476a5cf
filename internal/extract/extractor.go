package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Extractor segments a Notion page into sections and classifies their blocks.
// It is safe for concurrent use.
type Extractor struct {
	// baseURL is the page URL, used for resolving relative links.
	baseURL *url.URL

	rules  map[model.SectionKind]Rule
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules overrides section keywords. Sections or keyword lists left
// empty keep their defaults.
func WithRules(overrides map[model.SectionKind]config.SectionRules) Option {
	return func(e *Extractor) {
		e.rules = mergeRules(e.rules, overrides)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// Result is the outcome of extracting a page.
type Result struct {
	// Extraction holds the items of every section. Sections whose header
	// was not found are empty.
	Extraction *model.Extraction

	// Warnings holds non-fatal problems, one per affected section,
	// in section order. Each wraps ErrHeaderNotFound.
	Warnings []error
}

// New creates an Extractor for a page at pageURL.
func New(pageURL string, opts ...Option) (*Extractor, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	e := &Extractor{
		baseURL: base,
		rules:   DefaultRules(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	for kind, rule := range e.rules {
		rule = normalizeRule(rule)
		if len(rule.Headers) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoHeaders, kind)
		}
		e.rules[kind] = rule
	}

	return e, nil
}

// Rule returns the normalized keywords used for a section.
func (e *Extractor) Rule(kind model.SectionKind) Rule {
	return e.rules[kind]
}

// ExtractBytes parses raw HTML and extracts every section.
func (e *Extractor) ExtractBytes(ctx context.Context, raw []byte) (*Result, error) {
	return e.Extract(ctx, bytes.NewReader(raw))
}

// Extract parses HTML from r and extracts every section.
// The sections are extracted concurrently from the same parsed document.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	blocks := make([][]Block, len(model.Sections))
	warnings := make([]error, len(model.Sections))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range model.Sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := e.Blocks(doc, kind)
			if err != nil {
				warnings[i] = err
				return nil
			}
			blocks[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Extraction: &model.Extraction{}}
	for i, kind := range model.Sections {
		if warnings[i] != nil {
			e.logger.Warn("section header not found", "section", kind, "headers", e.rules[kind].Headers)
			result.Warnings = append(result.Warnings, warnings[i])
			continue
		}

		switch kind {
		case model.SectionResearch:
			for _, b := range blocks[i] {
				result.Extraction.Research = append(result.Extraction.Research, publication(b))
			}
		case model.SectionLectures:
			for _, b := range blocks[i] {
				result.Extraction.Lectures = append(result.Extraction.Lectures, lecture(b))
			}
		case model.SectionConferences:
			for _, b := range blocks[i] {
				result.Extraction.Conferences = append(result.Extraction.Conferences, lecture(b))
			}
		}
		e.logger.Debug("section extracted", "section", kind, "items", len(blocks[i]))
	}

	return result, nil
}

// Blocks returns the raw blocks of one section of a parsed document.
// It returns an error wrapping ErrHeaderNotFound when the section header
// does not appear in the document.
func (e *Extractor) Blocks(doc *html.Node, kind model.SectionKind) ([]Block, error) {
	rule, ok := e.rules[kind]
	if !ok {
		return nil, fmt.Errorf("no rule for section %q", kind)
	}

	header := findHeader(doc, rule.Headers)
	if header == nil {
		return nil, fmt.Errorf("%w: %s", ErrHeaderNotFound, kind)
	}

	start := enclosingBlock(header)
	if start == nil {
		return nil, fmt.Errorf("%w: %s", ErrHeaderNotFound, kind)
	}

	return walkSection(start, rule.Stops, e.baseURL), nil
}
