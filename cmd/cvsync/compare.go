package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/history"
	"github.com/nao1215/cvsync/internal/model"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// It compares the entries of two recorded runs of the same page.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Show entries added or removed between two syncs",
		Long: `Compare displays the differences between two recorded runs of a page:

- Entries that appeared since the previous sync
- Entries that are no longer on the page
- The number of items per section

Only runs that wrote the index file are compared. Dry runs and failed runs
are ignored. Without an argument the URL from .cvsync is used.

Examples:
  # Compare the latest two syncs of the configured page
  cvsync compare

  # Compare the latest sync with a specific run
  cvsync compare --with-run 3f2a9c1b https://example.notion.site/CV

  # Output the comparison as JSON
  cvsync compare --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with-run", "w", "",
		"Compare the latest sync with this run (a unique id prefix is enough)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .cvsync in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("history-dir", "",
		"Directory of the history database (default: XDG data directory)")
	_ = cmd.Flags().MarkHidden("history-dir")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	withRun, err := flags.GetString("with-run")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("history-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Resolve the page before opening the database so that argument
	// errors do not depend on the history state.
	pageURL, err := comparePageURL(cmd, args)
	if err != nil {
		return err
	}

	setupLogger(cmd)

	db, err := history.Open(dbDir, history.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, history.ErrNoDatabase) {
		return fmt.Errorf("no sync runs recorded for %s", pageURL)
	}
	if err != nil {
		return err
	}
	defer db.Close()

	previous, current, err := selectRuns(cmd.Context(), db, pageURL, withRun)
	if err != nil {
		return err
	}

	comparison := compareReports(previous, current)

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// comparePageURL returns the page given as an argument, or the url of the
// configuration file.
func comparePageURL(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	configFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	configPath := config.FindConfigFile(configFlag)
	if configPath == "" {
		if configFlag != "" {
			return "", fmt.Errorf("%w: %s", config.ErrConfigNotFound, configFlag)
		}
		return "", config.ErrNoURL
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg := config.NewConfig()
	cf.Apply(cfg)
	if cfg.NotionURL == "" {
		return "", config.ErrNoURL
	}
	return cfg.NotionURL, nil
}

// selectRuns loads the reports to compare. The current report is always
// the latest sync of the page.
func selectRuns(ctx context.Context, db *history.DB, pageURL, withRun string) (*model.SyncReport, *model.SyncReport, error) {
	runs, err := db.SyncedRuns(ctx, pageURL, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("no sync runs recorded for %s", pageURL)
	}
	if len(runs) < 2 && withRun == "" {
		return nil, nil, fmt.Errorf("at least 2 syncs are required for comparison (found %d)", len(runs))
	}

	current, err := db.GetRun(ctx, runs[0].RunID)
	if err != nil {
		return nil, nil, err
	}

	previousID := withRun
	if previousID == "" {
		previousID = runs[1].RunID
	}
	previous, err := db.GetRun(ctx, previousID)
	if err != nil {
		return nil, nil, err
	}
	if previous.URL != pageURL {
		return nil, nil, fmt.Errorf("run %s belongs to %s, not %s", withRun, previous.URL, pageURL)
	}

	return previous, current, nil
}

// Comparison holds the differences between two runs of a page.
type Comparison struct {
	// URL is the Notion page.
	URL string `json:"url"`

	// Previous and Current describe the compared runs.
	Previous RunMetadata `json:"previous_run"`
	Current  RunMetadata `json:"current_run"`

	// Sections holds one entry per section, in render order.
	Sections []SectionChange `json:"sections"`
}

// RunMetadata identifies a compared run.
type RunMetadata struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	ContentHash string    `json:"content_hash,omitempty"`
}

// SectionChange lists the entries of one section that differ between runs.
// Entries are identified by their full block text.
type SectionChange struct {
	Section   model.SectionKind `json:"section"`
	Previous  int               `json:"previous"`
	Current   int               `json:"current"`
	Added     []string          `json:"added,omitempty"`
	Removed   []string          `json:"removed,omitempty"`
	Unchanged int               `json:"unchanged"`
}

// Changed reports whether the generated markup differs between the runs.
func (c *Comparison) Changed() bool {
	return c.Previous.ContentHash != c.Current.ContentHash
}

// compareReports compares the extracted entries of two reports.
func compareReports(previous, current *model.SyncReport) *Comparison {
	result := &Comparison{
		URL:      current.URL,
		Previous: runMetadata(previous),
		Current:  runMetadata(current),
		Sections: make([]SectionChange, 0, len(model.Sections)),
	}

	for _, kind := range model.Sections {
		before := sectionEntries(previous.Extraction, kind)
		after := sectionEntries(current.Extraction, kind)
		added, removed := diffEntries(before, after)
		result.Sections = append(result.Sections, SectionChange{
			Section:   kind,
			Previous:  len(before),
			Current:   len(after),
			Added:     added,
			Removed:   removed,
			Unchanged: len(after) - len(added),
		})
	}

	return result
}

func runMetadata(r *model.SyncReport) RunMetadata {
	return RunMetadata{
		RunID:       r.RunID,
		StartedAt:   r.StartedAt,
		ContentHash: r.ContentHash,
	}
}

// sectionEntries returns the block texts of a section.
func sectionEntries(e *model.Extraction, kind model.SectionKind) []string {
	if e == nil {
		return nil
	}

	var entries []string
	switch kind {
	case model.SectionResearch:
		for _, p := range e.Research {
			entries = append(entries, p.Source)
		}
	case model.SectionLectures:
		for _, l := range e.Lectures {
			entries = append(entries, l.Text)
		}
	case model.SectionConferences:
		for _, l := range e.Conferences {
			entries = append(entries, l.Text)
		}
	}
	return entries
}

// diffEntries returns the entries only in after, in page order, and the
// entries only in before. Repeated entries are matched one for one.
func diffEntries(before, after []string) (added, removed []string) {
	remaining := make(map[string]int, len(before))
	for _, e := range before {
		remaining[e]++
	}
	for _, e := range after {
		if remaining[e] > 0 {
			remaining[e]--
			continue
		}
		added = append(added, e)
	}
	for _, e := range before {
		if remaining[e] > 0 {
			remaining[e]--
			removed = append(removed, e)
		}
	}
	return added, removed
}

func outputComparisonJSON(w io.Writer, result *Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(w io.Writer, result *Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Sync Comparison: " + result.URL)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Run", "ID", "Started"},
		Rows: [][]string{
			{"Previous", "`" + result.Previous.RunID + "`", result.Previous.StartedAt.Format("2006-01-02 15:04")},
			{"Current", "`" + result.Current.RunID + "`", result.Current.StartedAt.Format("2006-01-02 15:04")},
		},
	})
	md.PlainText("")

	if !result.Changed() {
		md.Note("The generated markup is identical.")
		md.PlainText("")
	}

	rows := make([][]string, 0, len(result.Sections))
	for _, s := range result.Sections {
		rows = append(rows, []string{
			sectionTitle(s.Section),
			strconv.Itoa(s.Previous),
			strconv.Itoa(s.Current),
			formatDelta(s.Current - s.Previous),
		})
	}
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Section", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, s := range result.Sections {
		if len(s.Added) == 0 && len(s.Removed) == 0 {
			continue
		}
		md.H2(sectionTitle(s.Section))
		md.PlainText("")
		items := make([]string, 0, len(s.Added)+len(s.Removed))
		for _, e := range s.Added {
			items = append(items, "**+** "+e)
		}
		for _, e := range s.Removed {
			items = append(items, "~~"+e+"~~")
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	return md.Build()
}

func outputComparisonText(w io.Writer, result *Comparison) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Sync Comparison: %s\n", result.URL)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "\nPrevious run: %s  %s\n", shortRunID(result.Previous.RunID), result.Previous.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current run:  %s  %s\n", shortRunID(result.Current.RunID), result.Current.StartedAt.Format("2006-01-02 15:04:05"))
	if !result.Changed() {
		sb.WriteString("\nGenerated markup is identical.\n")
	}

	sb.WriteString("\nItems per Section:\n")
	fmt.Fprintf(&sb, "  %-12s  %-8s  %-8s  %s\n", "Section", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 42) + "\n")
	for _, s := range result.Sections {
		fmt.Fprintf(&sb, "  %-12s  %-8d  %-8d  %s\n",
			sectionTitle(s.Section), s.Previous, s.Current, formatDelta(s.Current-s.Previous))
	}

	for _, s := range result.Sections {
		if len(s.Added) == 0 && len(s.Removed) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", sectionTitle(s.Section))
		for _, e := range s.Added {
			fmt.Fprintf(&sb, "  [+] %s\n", e)
		}
		for _, e := range s.Removed {
			fmt.Fprintf(&sb, "  [-] %s\n", e)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// sectionTitle returns "Research" for "research".
func sectionTitle(kind model.SectionKind) string {
	s := kind.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// shortRunID returns the first eight characters of a run id.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
