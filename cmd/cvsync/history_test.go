package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/history"
	"github.com/nao1215/cvsync/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	if cmd.Use != "history" {
		t.Errorf("expected use 'history', got %q", cmd.Use)
	}

	limit := cmd.Flags().Lookup("limit")
	if limit == nil {
		t.Fatal("expected limit flag")
	}
	if limit.Shorthand != "l" || limit.DefValue != "20" {
		t.Errorf("unexpected limit flag: -%s default %s", limit.Shorthand, limit.DefValue)
	}
	if flag := cmd.Flags().Lookup("history-dir"); flag == nil || !flag.Hidden {
		t.Error("expected hidden history-dir flag")
	}
}

// seedHistory stores two reports for the same page and returns them.
func seedHistory(t *testing.T, dir string) []*model.SyncReport {
	t.Helper()

	db, err := history.Open(dir, history.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	defer db.Close()

	var reports []*model.SyncReport
	for _, text := range []string{"First talk", "Second talk"} {
		r := model.NewSyncReport("https://example.notion.site/CV", "index.html")
		r.Renderer = "http"
		r.Extraction = &model.Extraction{Lectures: []model.Lecture{{Date: "2023.05", Text: text}}}
		r.SetFragment(model.SectionLectures, "<li>"+text+"</li>")
		r.ComputeContentHash()
		r.AddTarget(model.TargetResult{Section: model.SectionLectures, ElementID: "lecture-list", Status: model.TargetUpdated, Items: 1})
		r.Finish()
		if err := db.SaveSyncReport(context.Background(), r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		reports = append(reports, r)
	}
	return reports
}

// TestRunHistoryCmd tests listing and showing recorded runs.
func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("no database", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "none")
		stdout, _, err := execute(t, "history", "--history-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No sync runs recorded.") {
			t.Errorf("unexpected output:\n%s", stdout)
		}

		stdout, _, err = execute(t, "history", "--history-dir", dir, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(stdout) != "[]" {
			t.Errorf("expected empty JSON array, got %q", stdout)
		}
	})

	t.Run("show without database", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "none")
		_, _, err := execute(t, "history", "--history-dir", dir, "--show", "abc")
		if !errors.Is(err, history.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		reports := seedHistory(t, dir)

		stdout, _, err := execute(t, "history", "--history-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := strings.Index(stdout, reports[1].RunID[:8])
		second := strings.Index(stdout, reports[0].RunID[:8])
		if first < 0 || second < 0 || first > second {
			t.Errorf("expected newest run first:\n%s", stdout)
		}
		if !strings.Contains(stdout, "changed") {
			t.Errorf("expected changed status:\n%s", stdout)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		seedHistory(t, dir)

		stdout, _, err := execute(t, "history", "--history-dir", dir, "-l", "1", "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var runs []history.Run
		if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, stdout)
		}
		if len(runs) != 1 || runs[0].Lectures != 1 {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})

	t.Run("limit keeps status of the oldest listed run", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := history.Open(dir, history.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		for range 2 {
			r := model.NewSyncReport("https://example.notion.site/CV", "index.html")
			r.Extraction = &model.Extraction{Lectures: []model.Lecture{{Date: "2023.05", Text: "Same talk"}}}
			r.SetFragment(model.SectionLectures, "<li>Same talk</li>")
			r.ComputeContentHash()
			r.Finish()
			if err := db.SaveSyncReport(context.Background(), r); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}
		_ = db.Close()

		stdout, _, err := execute(t, "history", "--history-dir", dir, "-l", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "unchanged") {
			t.Errorf("expected unchanged status:\n%s", stdout)
		}
	})

	t.Run("show by prefix", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		reports := seedHistory(t, dir)

		stdout, _, err := execute(t, "history", "--history-dir", dir, "--show", reports[0].RunID[:12], "-m")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "# cvsync Report") || !strings.Contains(stdout, reports[0].RunID) {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})

	t.Run("show unknown run", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		seedHistory(t, dir)

		_, _, err := execute(t, "history", "--history-dir", dir, "--show", "zzzz")
		if !errors.Is(err, history.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "history", "--history-dir", t.TempDir(), "-j", "-m")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}
