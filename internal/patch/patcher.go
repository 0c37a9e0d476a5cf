package patch

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/cvsync/internal/model"
	"golang.org/x/net/html"
)

// Target is one element to patch.
type Target struct {
	// Section is the section the fragment was rendered from.
	Section model.SectionKind

	// ElementID is the id attribute of the element whose children are replaced.
	ElementID string

	// Fragment is the new content. An empty fragment leaves the element untouched.
	Fragment string

	// Items is the number of items in the fragment, copied to the result.
	Items int
}

// Patcher applies fragments to an HTML file.
type Patcher struct {
	path   string
	dryRun bool
	logger *slog.Logger
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithDryRun computes the results without writing the file.
func WithDryRun(dryRun bool) Option {
	return func(p *Patcher) {
		p.dryRun = dryRun
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Patcher) {
		p.logger = logger
	}
}

// New creates a Patcher for the HTML file at path.
func New(path string, opts ...Option) *Patcher {
	p := &Patcher{
		path:   path,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Path returns the file being patched.
func (p *Patcher) Path() string {
	return p.path
}

// Apply patches every target and writes the file if at least one element
// changed. It returns one result per target in the given order.
//
// A target whose id does not exist is reported as model.TargetMissing and
// does not stop the other targets. Failing to read, parse or write the file
// is an error.
func (p *Patcher) Apply(targets []Target) ([]model.TargetResult, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat index file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("index file %s is a directory", p.path)
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}

	results, changed, err := patchDocument(doc, targets, p.dryRun)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		switch r.Status {
		case model.TargetMissing:
			p.logger.Warn("target element not found", "section", r.Section, "id", r.ElementID, "file", p.path)
		case model.TargetSkippedEmpty:
			p.logger.Info("no content for section, keeping existing markup", "section", r.Section, "id", r.ElementID)
		default:
			p.logger.Debug("target patched", "section", r.Section, "id", r.ElementID, "status", r.Status, "items", r.Items)
		}
	}

	if !changed || p.dryRun {
		return results, nil
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render index file: %w", err)
	}
	if err := writeFileAtomic(p.path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return nil, err
	}

	return results, nil
}

// patchDocument replaces the children of each target element in doc.
// changed reports whether any element would be modified.
func patchDocument(doc *html.Node, targets []Target, dryRun bool) ([]model.TargetResult, bool, error) {
	results := make([]model.TargetResult, 0, len(targets))
	changed := false

	for _, t := range targets {
		result := model.TargetResult{
			Section:   t.Section,
			ElementID: t.ElementID,
			Items:     t.Items,
		}

		if strings.TrimSpace(t.Fragment) == "" {
			result.Status = model.TargetSkippedEmpty
			results = append(results, result)
			continue
		}

		el := FindByID(doc, t.ElementID)
		if el == nil {
			result.Status = model.TargetMissing
			results = append(results, result)
			continue
		}

		if err := replaceChildren(el, t.Fragment); err != nil {
			return nil, false, fmt.Errorf("failed to patch #%s: %w", t.ElementID, err)
		}
		changed = true

		result.Status = model.TargetUpdated
		if dryRun {
			result.Status = model.TargetDryRun
		}
		results = append(results, result)
	}

	return results, changed, nil
}

// FindByID returns the first element with the given id, or nil.
func FindByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// replaceChildren parses fragment in the context of el and swaps it in for
// el's children.
func replaceChildren(el *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), el)
	if err != nil {
		return err
	}

	for c := el.FirstChild; c != nil; c = el.FirstChild {
		el.RemoveChild(c)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		el.AppendChild(n)
	}
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path. A symbolic link is followed so that its target is replaced
// and the link stays in place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("failed to resolve index file: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}
