package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/cvsync/internal/model"
	"github.com/nao1215/cvsync/internal/render"
)

// SimpleWriter outputs a plain text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// showFragments prints the generated markup. Dry runs always do.
	showFragments bool

	// verbose adds the run id, content hash and performed steps.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowFragments prints the generated markup of each section.
func WithShowFragments(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showFragments = show
	}
}

// WithVerbose enables additional detail in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report.
func (w *SimpleWriter) Write(report *model.SyncReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSections(&sb, report)
	w.writeWarnings(&sb, report)
	if w.showFragments || report.DryRun {
		w.writeFragments(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func rule(sb *strings.Builder, c string) {
	sb.WriteString(strings.Repeat(c, 70))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SyncReport) {
	sb.WriteString("\n")
	rule(sb, "=")
	sb.WriteString("                           CVSYNC REPORT\n")
	rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Notion Page:  %s\n", report.URL)
	fmt.Fprintf(sb, "Index File:   %s\n", report.IndexFile)
	if report.Renderer != "" {
		fmt.Fprintf(sb, "Renderer:     %s\n", report.Renderer)
	}
	fmt.Fprintf(sb, "Started:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:     %s\n", d.Round(time.Millisecond))
	}
	if w.verbose {
		fmt.Fprintf(sb, "Run ID:       %s\n", report.RunID)
		if report.ContentHash != "" {
			fmt.Fprintf(sb, "Content Hash: %s\n", report.ContentHash)
		}
		if len(report.PerformedSteps) > 0 {
			fmt.Fprintf(sb, "Steps:        %s\n", strings.Join(report.PerformedSteps, " -> "))
		}
	}
	fmt.Fprintf(sb, "Status:       %s\n", statusText(report))
	sb.WriteString("\n")
}

// statusText summarizes the outcome of a run in one line.
func statusText(report *model.SyncReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT"
	case report.ErrorMessage != "":
		return "ERROR - " + report.ErrorMessage
	case report.DryRun:
		return "Dry run (index file not written)"
	case report.UpdatedCount() == 0:
		return "Complete (nothing to update)"
	default:
		return "Complete"
	}
}

func (w *SimpleWriter) writeSections(sb *strings.Builder, report *model.SyncReport) {
	rule(sb, "-")
	sb.WriteString("SECTIONS\n")
	rule(sb, "-")
	sb.WriteString("\n")

	for _, kind := range model.Sections {
		fmt.Fprintf(sb, "  %-12s %3d item(s)", sectionLabel(kind)+":", report.Count(kind))
		if t, ok := targetFor(report, kind); ok {
			fmt.Fprintf(sb, "  -> #%s (%s)", t.ElementID, statusLabel(t.Status))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeWarnings(sb *strings.Builder, report *model.SyncReport) {
	if len(report.Warnings) == 0 {
		return
	}

	rule(sb, "-")
	sb.WriteString("WARNINGS\n")
	rule(sb, "-")
	sb.WriteString("\n")
	for _, warning := range report.Warnings {
		fmt.Fprintf(sb, "  [!] %s\n", warning)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFragments(sb *strings.Builder, report *model.SyncReport) {
	rule(sb, "-")
	sb.WriteString("FRAGMENTS\n")
	rule(sb, "-")
	sb.WriteString("\n")

	for _, kind := range model.Sections {
		fmt.Fprintf(sb, "[%s]\n", sectionLabel(kind))
		pretty := render.Pretty(report.Fragment(kind))
		if pretty == "" {
			sb.WriteString("  (empty)\n\n")
			continue
		}
		sb.WriteString(pretty)
		sb.WriteString("\n\n")
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	rule(sb, "=")
}
