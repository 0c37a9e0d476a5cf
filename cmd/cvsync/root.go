package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/cvsync/internal/config"
	cvlog "github.com/nao1215/cvsync/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cvsync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cvsync",
		Short: "Sync a Notion CV page into a static site",
		Long: `cvsync fetches a public Notion CV page, extracts the research,
special lecture and conference sections, and replaces the contents of the
matching elements in a static site's index.html.

By default the page is rendered with a headless Chrome/Chromium so that
blocks built by JavaScript are present. Use --renderer http for a plain
HTTP fetch.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: text or json")

	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// getLogFormat retrieves the log format from the command or its parent.
func getLogFormat(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil || format == "" {
		return config.DefaultLogFormat
	}
	return format
}

// setupLogger creates the masking structured logger on stderr.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := cvlog.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), getLogFormat(cmd))
	slog.SetDefault(logger)
	return logger
}
