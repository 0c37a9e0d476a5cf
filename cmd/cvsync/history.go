package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/history"
	"github.com/nao1215/cvsync/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync runs",
		Long: `History lists the runs recorded by "cvsync sync", newest first.

The STATUS column is "changed" when a run generated different markup than
the previous run of the same page that wrote the index file.

Examples:
  # List the last 20 runs
  cvsync history

  # Show the full report of one run (a unique prefix of the id is enough)
  cvsync history --show 3f2a9c1b

  # Export all runs as JSON
  cvsync history --limit 0 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().String("show", "",
		"Print the full report of the run with this id")

	cmd.Flags().String("history-dir", "",
		"Directory of the history database (default: XDG data directory)")
	_ = cmd.Flags().MarkHidden("history-dir")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return config.ErrConflictingReportFormats
	}
	show, err := flags.GetString("show")
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

	setupLogger(cmd)

	format := report.FormatText
	switch {
	case asJSON:
		format = report.FormatJSON
	case asMarkdown:
		format = report.FormatMarkdown
	}

	db, err := history.Open(dbDir, history.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, history.ErrNoDatabase) {
		if show != "" {
			return fmt.Errorf("%w: %s", history.ErrRunNotFound, show)
		}
		_, err = report.NewHistoryWriter(cmd.OutOrStdout(), format).Write(nil)
		return err
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	if show != "" {
		syncReport, err := db.GetRun(ctx, show)
		if err != nil {
			return err
		}
		_, err = report.New(cmd.OutOrStdout(), format, getVersion()).Write(syncReport)
		return err
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	_, err = report.NewHistoryWriter(cmd.OutOrStdout(), format).Write(runs)
	return err
}
