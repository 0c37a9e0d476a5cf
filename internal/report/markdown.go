package report

import (
	"io"
	"strconv"

	"github.com/nao1215/cvsync/internal/model"
	"github.com/nao1215/cvsync/internal/render"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// syntaxHTML highlights fragment code blocks.
const syntaxHTML markdown.SyntaxHighlight = "html"

// MarkdownWriter outputs a Markdown summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.SyncReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSections(md, report)
	w.writeWarnings(md, report)
	w.writeFragments(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SyncReport) {
	md.H1("cvsync Report")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + report.RunID + "`"},
		{"Notion Page", report.URL},
		{"Index File", "`" + report.IndexFile + "`"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if report.Renderer != "" {
		rows = append(rows, []string{"Renderer", report.Renderer})
	}
	if report.ContentHash != "" {
		rows = append(rows, []string{"Content Hash", "`" + truncateString(report.ContentHash, 16) + "`"})
	}
	rows = append(rows, []string{"Status", w.getStatusText(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

func (w *MarkdownWriter) getStatusText(report *model.SyncReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Timed Out"
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case report.DryRun:
		return "📝 Dry Run"
	default:
		return "✅ Complete"
	}
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.SyncReport) {
	switch {
	case !report.Succeeded():
		md.Cautionf("The sync did not complete: %s", statusText(report))
	case len(report.Warnings) > 0:
		md.Warningf("%d warning(s) were reported. Affected sections were left untouched.", len(report.Warnings))
	case report.DryRun:
		md.Note("Dry run: the index file was not written.")
	case report.UpdatedCount() == 0:
		md.Importantf("No section of %s was updated.", report.IndexFile)
	default:
		md.Tip("All sections are in sync.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSections(md *markdown.Markdown, report *model.SyncReport) {
	md.H2("Sections")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Sections))
	for _, kind := range model.Sections {
		target, status := "-", "-"
		if t, ok := targetFor(report, kind); ok {
			target = "`#" + t.ElementID + "`"
			status = statusLabel(t.Status)
		}
		rows = append(rows, []string{
			sectionLabel(kind),
			strconv.Itoa(report.Count(kind)),
			target,
			status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Section", "Items", "Target", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Extraction.Total() > 0 {
		w.writePieChart(md, report)
	}
}

// writePieChart writes a mermaid pie chart of items per section.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.SyncReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Items per Section"),
		piechart.WithShowData(true),
	)
	for _, kind := range model.Sections {
		if n := report.Count(kind); n > 0 {
			chart.LabelAndIntValue(sectionLabel(kind), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, report *model.SyncReport) {
	if len(report.Warnings) == 0 {
		return
	}

	md.H2("Warnings")
	md.PlainText("")
	md.BulletList(report.Warnings...)
	md.PlainText("")
}

// writeFragments writes the generated markup in collapsible blocks.
func (w *MarkdownWriter) writeFragments(md *markdown.Markdown, report *model.SyncReport) {
	if len(report.Fragments) == 0 {
		return
	}

	md.H2("Fragments")
	md.PlainText("")
	for _, kind := range model.Sections {
		pretty := render.Pretty(report.Fragment(kind))
		if pretty == "" {
			continue
		}
		md.H3(sectionLabel(kind))
		md.PlainText("")
		md.CodeBlocks(syntaxHTML, pretty)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [cvsync](https://github.com/nao1215/cvsync)*")
}
