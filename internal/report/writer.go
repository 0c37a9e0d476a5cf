package report

import (
	"io"
	"strings"

	"github.com/nao1215/cvsync/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer outputs a sync report.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.SyncReport) (int, error)
}

// Format selects a Writer implementation.
type Format string

const (
	// FormatText is the human-readable summary.
	FormatText Format = "text"

	// FormatJSON is the full report as JSON.
	FormatJSON Format = "json"

	// FormatMarkdown is a Markdown summary.
	FormatMarkdown Format = "markdown"
)

// New returns the Writer for format. Unknown formats fall back to text.
// version is embedded in JSON output.
func New(output io.Writer, format Format, version string) Writer {
	switch format {
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer and stops on the first error.
func (m *MultiWriter) Write(report *model.SyncReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// title upper-cases the first letter of each word. A Caser keeps state,
// so a new one is created per call.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// sectionLabel returns the display name of a section, e.g. "Research".
func sectionLabel(kind model.SectionKind) string {
	return title(string(kind))
}

// statusLabel returns the display name of a target status, e.g. "Skipped Empty".
func statusLabel(status model.TargetStatus) string {
	return title(strings.ReplaceAll(string(status), "_", " "))
}

// targetFor returns the patch result for a section, if any.
func targetFor(report *model.SyncReport, kind model.SectionKind) (model.TargetResult, bool) {
	for _, t := range report.Targets {
		if t.Section == kind {
			return t, true
		}
	}
	return model.TargetResult{}, false
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
