package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/cvsync/internal/history"
	"github.com/nao1215/markdown"
)

// shortIDLen is the number of run id characters shown in listings.
// It is also enough to select a run with --show.
const shortIDLen = 8

// HistoryWriter outputs a listing of recorded runs.
type HistoryWriter struct {
	baseWriter
	format Format
}

// NewHistoryWriter creates a HistoryWriter. FormatText, FormatJSON and
// FormatMarkdown are supported.
func NewHistoryWriter(output io.Writer, format Format) *HistoryWriter {
	return &HistoryWriter{
		baseWriter: newBaseWriter(output),
		format:     format,
	}
}

// Write outputs runs, newest first as given.
func (w *HistoryWriter) Write(runs []history.Run) (int, error) {
	switch w.format {
	case FormatJSON:
		if runs == nil {
			runs = []history.Run{}
		}
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return 0, err
		}
		return w.output.Write(append(data, '\n'))
	case FormatMarkdown:
		return w.writeMarkdown(runs)
	default:
		return w.writeText(runs)
	}
}

func (w *HistoryWriter) writeText(runs []history.Run) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No sync runs recorded.\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-8s  %-19s  %4s  %4s  %4s  %-7s  %-12s  %s\n",
		"RUN", "DATE", "RES", "LEC", "CONF", "UPDATED", "STATUS", "URL")
	for _, run := range runs {
		fmt.Fprintf(&sb, "%-8s  %-19s  %4d  %4d  %4d  %7d  %-12s  %s\n",
			shortID(run.RunID),
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Research,
			run.Lectures,
			run.Conferences,
			run.Updated,
			runStatus(run),
			run.URL,
		)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *HistoryWriter) writeMarkdown(runs []history.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("cvsync History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No sync runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			"`" + shortID(run.RunID) + "`",
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(run.Research),
			strconv.Itoa(run.Lectures),
			strconv.Itoa(run.Conferences),
			strconv.Itoa(run.Updated),
			runStatus(run),
			run.URL,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Date", "Research", "Lectures", "Conferences", "Updated", "Status", "URL"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// shortID returns the leading shortIDLen characters of a run id.
func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// runStatus is a one-word outcome for a listing. Content changes are
// judged against the run's PreviousHash, so a run whose predecessor fell
// outside the listed window is still reported correctly.
func runStatus(run history.Run) string {
	switch {
	case !run.Succeeded():
		return "failed"
	case run.DryRun:
		return "dry-run"
	case run.ChangedFromPrevious():
		return "changed"
	default:
		return "unchanged"
	}
}
