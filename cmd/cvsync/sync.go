package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/fetch"
	"github.com/nao1215/cvsync/internal/history"
	"github.com/nao1215/cvsync/internal/model"
	"github.com/nao1215/cvsync/internal/pipeline"
	"github.com/nao1215/cvsync/internal/report"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [url]",
		Short: "Copy the CV sections of a Notion page into index.html",
		Long: `Sync fetches the Notion page, extracts three sections and replaces the
children of the matching elements in the index file:

  research     -> #research-list    (publications with year, category and link)
  lectures     -> #lecture-list     (special lectures with date)
  conferences  -> #conference-list  (conference talks with date)

A publication's title is the first 100 characters of its entry. "..." is
appended only when the entry is longer and the title was cut.

A section whose header is missing, or which has no items, leaves its
element untouched. The run is recorded in the history database unless
--no-history is given.

Examples:
  # Sync using the URL and index file from .cvsync
  cvsync sync

  # Sync a page into a specific file
  cvsync sync https://example.notion.site/CV -i site/index.html

  # Show what would change without writing the file
  cvsync sync -n

  # Fetch without a browser and write a Markdown report
  cvsync sync -r http -m -o report.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSyncCmd,
	}

	cmd.Flags().StringP("index", "i", config.DefaultIndexFile,
		"HTML file to patch")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .cvsync in current or home directory)")
	cmd.Flags().StringP("renderer", "r", config.DefaultRenderer,
		"How to fetch the page: chrome or http")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for fetching the page")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().BoolP("dry-run", "n", false,
		"Compute the changes without writing the index file")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed); a summary is still printed")
	cmd.Flags().Bool("show-fragments", false,
		"Print the generated HTML of each section in the text summary")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")

	cmd.Flags().String("history-dir", "",
		"Directory of the history database (default: XDG data directory)")
	_ = cmd.Flags().MarkHidden("history-dir")

	return cmd
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := fetch.New(cfg, logger)
	if err != nil {
		return err
	}

	return runSync(ctx, cmd, cfg, fetcher, logger)
}

// buildConfig creates a Config from defaults, the configuration file and
// flags, in increasing priority. Only flags set on the command line
// override the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// A missing file is only an error if it was asked for explicitly.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if len(args) > 0 {
		cfg.NotionURL = args[0]
	}

	if flags.Changed("index") {
		if cfg.IndexFile, err = flags.GetString("index"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("renderer") {
		if cfg.Renderer, err = flags.GetString("renderer"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("history-dir") {
		if cfg.DBDir, err = flags.GetString("history-dir"); err != nil {
			return nil, err
		}
	}

	if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ShowFragments, err = flags.GetBool("show-fragments"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormat(cmd)

	return cfg, nil
}

// runSync executes the pipeline, records the run and writes the report.
// The returned error is the one that stopped the pipeline; history and
// report problems are logged instead.
func runSync(ctx context.Context, cmd *cobra.Command, cfg *config.Config, fetcher fetch.Fetcher, logger *slog.Logger) error {
	logger.Info("starting sync",
		"url", cfg.NotionURL,
		"index", cfg.IndexFile,
		"renderer", fetcher.Name(),
		"dryRun", cfg.DryRun,
	)

	syncReport := model.NewSyncReport(cfg.NotionURL, cfg.IndexFile)
	p := pipeline.DefaultPipeline(cfg, fetcher, pipeline.WithLogger(logger))
	runErr := p.Execute(ctx, syncReport)

	if cfg.SaveToDB {
		// Record cancelled runs too.
		if err := recordRun(context.WithoutCancel(ctx), cfg.DBDir, syncReport, logger); err != nil {
			logger.Warn("failed to record run in history", "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}

	if err := outputReport(cmd.OutOrStdout(), cfg, syncReport); err != nil {
		logger.Error("report failed", "error", err)
		if runErr == nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("sync failed: %w", runErr)
	}
	return nil
}

// recordRun saves the report in the history database and logs whether the
// generated content differs from the last run that wrote the index file.
func recordRun(ctx context.Context, dbDir string, syncReport *model.SyncReport, logger *slog.Logger) error {
	db, err := history.Open(dbDir, history.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	prev, err := db.LatestRun(ctx, syncReport.URL)
	if err != nil && !errors.Is(err, history.ErrRunNotFound) {
		logger.Debug("failed to look up previous run", "error", err)
	}

	if syncReport.Succeeded() && prev != nil && prev.ContentHash == syncReport.ContentHash {
		logger.Info("content unchanged since previous sync", "previousRun", prev.RunID, "at", prev.Timestamp)
	}

	if err := db.SaveSyncReport(ctx, syncReport); err != nil {
		return err
	}

	logger.Info("run recorded", "run", syncReport.RunID, "db", db.Path())
	return nil
}

// outputReport writes the report in the configured format to stdout. When
// cfg.ReportFile is set the report goes to that file instead and a text
// summary is printed to stdout.
func outputReport(stdout io.Writer, cfg *config.Config, syncReport *model.SyncReport) error {
	if cfg.ReportFile == "" {
		_, err := formatWriter(stdout, cfg).Write(syncReport)
		return err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := report.NewMultiWriter(formatWriter(f, cfg), summaryWriter(stdout, cfg))
	if _, err := w.Write(syncReport); err != nil {
		return err
	}
	return f.Close()
}

// formatWriter returns the Writer for the report format selected in cfg.
func formatWriter(output io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.New(output, report.FormatJSON, getVersion())
	case cfg.MarkdownReport:
		return report.New(output, report.FormatMarkdown, getVersion())
	default:
		return summaryWriter(output, cfg)
	}
}

func summaryWriter(output io.Writer, cfg *config.Config) report.Writer {
	return report.NewSimpleWriter(output,
		report.WithVerbose(cfg.Verbose),
		report.WithShowFragments(cfg.ShowFragments),
	)
}
