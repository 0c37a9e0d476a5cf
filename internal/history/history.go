package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/cvsync/internal/model"
)

// DBFileName is the name of the database file inside the history directory.
const DBFileName = "cvsync.db"

// timeLayout is the stored timestamp format. It is fixed width so that
// timestamps sort lexically.
const timeLayout = "2006-01-02 15:04:05.000000"

var (
	// ErrRunNotFound is returned when no recorded run matches a lookup.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when a run id prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")

	// ErrNoDatabase is returned by Open when the database does not exist
	// and CreateIfNotExists is false.
	ErrNoDatabase = errors.New("history database not found")
)

// DB stores sync runs.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoDatabase, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &DB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return h, nil
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *DB) Path() string {
	return h.dbPath
}

func (h *DB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		index_file TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		renderer TEXT,
		research_count INTEGER DEFAULT 0,
		lecture_count INTEGER DEFAULT 0,
		conference_count INTEGER DEFAULT 0,
		content_hash TEXT,
		updated_count INTEGER DEFAULT 0,
		dry_run INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_url ON sync_runs(url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON sync_runs(timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is the summary of one recorded sync run.
type Run struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	URL         string    `json:"url"`
	IndexFile   string    `json:"index_file"`
	Timestamp   time.Time `json:"timestamp"`
	Renderer    string    `json:"renderer,omitempty"`
	Research    int       `json:"research"`
	Lectures    int       `json:"lectures"`
	Conferences int       `json:"conferences"`
	ContentHash string    `json:"content_hash,omitempty"`
	Updated     int       `json:"updated"`
	DryRun      bool      `json:"dry_run"`
	Error       string    `json:"error,omitempty"`

	// PreviousHash is the content hash of the run before this one that
	// wrote the index file for the same URL. It is set by ListRuns only.
	PreviousHash string `json:"previous_hash,omitempty"`
}

// Succeeded reports whether the run finished without an error.
func (r Run) Succeeded() bool {
	return r.Error == ""
}

// Changed reports whether the run produced different fragments than prev.
// A run without fragments never counts as changed.
func (r Run) Changed(prev *Run) bool {
	if r.ContentHash == "" {
		return false
	}
	return prev == nil || prev.ContentHash != r.ContentHash
}

// ChangedFromPrevious reports whether the run produced different fragments
// than the run recorded in PreviousHash.
func (r Run) ChangedFromPrevious() bool {
	if r.ContentHash == "" {
		return false
	}
	return r.PreviousHash != r.ContentHash
}

// SaveSyncReport records a finished run.
func (h *DB) SaveSyncReport(ctx context.Context, report *model.SyncReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	errText := report.ErrorMessage
	if errText == "" && report.TimedOut {
		errText = context.DeadlineExceeded.Error()
	}

	query := `
	INSERT INTO sync_runs (run_id, url, index_file, timestamp, renderer,
		research_count, lecture_count, conference_count,
		content_hash, updated_count, dry_run, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = h.db.ExecContext(ctx, query,
		report.RunID,
		report.URL,
		report.IndexFile,
		report.StartedAt.UTC().Format(timeLayout),
		report.Renderer,
		report.Count(model.SectionResearch),
		report.Count(model.SectionLectures),
		report.Count(model.SectionConferences),
		report.ContentHash,
		report.UpdatedCount(),
		report.DryRun,
		errText,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}

	return nil
}

const runColumns = `id, run_id, url, index_file, timestamp, renderer,
	research_count, lecture_count, conference_count,
	content_hash, updated_count, dry_run, error`

// previousHashColumn selects, for each row of sync_runs aliased as r, the
// hash of the newest earlier successful run of the same URL that was not a
// dry run.
const previousHashColumn = `(SELECT p.content_hash FROM sync_runs p
	WHERE p.url = r.url AND (p.error IS NULL OR p.error = '') AND p.dry_run = 0
		AND (p.timestamp < r.timestamp OR (p.timestamp = r.timestamp AND p.id < r.id))
	ORDER BY p.timestamp DESC, p.id DESC LIMIT 1)`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans the runColumns of a row. Values of any columns selected
// after them are stored in extra.
func scanRun(s rowScanner, extra ...any) (Run, error) {
	var (
		run       Run
		timestamp string
		renderer  sql.NullString
		hash      sql.NullString
		errText   sql.NullString
	)
	dest := []any{
		&run.ID,
		&run.RunID,
		&run.URL,
		&run.IndexFile,
		&timestamp,
		&renderer,
		&run.Research,
		&run.Lectures,
		&run.Conferences,
		&hash,
		&run.Updated,
		&run.DryRun,
		&errText,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return Run{}, err
	}
	run.Timestamp = parseTimestamp(timestamp)
	run.Renderer = renderer.String
	run.ContentHash = hash.String
	run.Error = errText.String
	return run, nil
}

// ListRuns returns the most recent runs, newest first, with PreviousHash
// filled in. A limit of zero or less returns every run.
func (h *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + `, ` + previousHashColumn + `
	FROM sync_runs r ORDER BY timestamp DESC, id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var previous sql.NullString
		run, err := scanRun(rows, &previous)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.PreviousHash = previous.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SyncedRuns returns the successful runs for a page URL that wrote the
// index file, newest first. A limit of zero or less returns every run.
func (h *DB) SyncedRuns(ctx context.Context, url string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs
	WHERE url = ? AND (error IS NULL OR error = '') AND dry_run = 0
	ORDER BY timestamp DESC, id DESC`
	args := []any{url}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list synced runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LatestRun returns the newest successful run for a page URL that wrote
// the index file. It returns ErrRunNotFound when there is none.
func (h *DB) LatestRun(ctx context.Context, url string) (*Run, error) {
	runs, err := h.SyncedRuns(ctx, url, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[0], nil
}

// GetRun returns the full report of a run. runID may be a unique prefix
// of the run id.
func (h *DB) GetRun(ctx context.Context, runID string) (*model.SyncReport, error) {
	if runID == "" {
		return nil, ErrRunNotFound
	}

	// A plain prefix comparison, so "%" and "_" in runID match literally.
	query := `SELECT report_json FROM sync_runs
	WHERE substr(run_id, 1, length(?1)) = ?1
	ORDER BY run_id = ?1 DESC LIMIT 2`
	rows, err := h.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, reportJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var report model.SyncReport
	if err := json.Unmarshal([]byte(matches[0]), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	// An exact match sorts first and wins over longer ids sharing the prefix.
	if len(matches) > 1 && report.RunID != runID {
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, runID)
	}
	if report.ErrorMessage != "" {
		report.Error = errors.New(report.ErrorMessage)
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
