// Package history keeps a local SQLite log of finished analyses.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/cortexctl/internal/flow"
	"github.com/dyike/cortexctl/pkg/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// ErrNotFound is returned by Get for an unknown record id.
var ErrNotFound = errors.New("history record not found")

// Record is one finished analysis run.
type Record struct {
	ID          int64
	JobID       string
	Ticker      string
	Date        string
	Provider    string
	QuickModel  string
	DeepModel   string
	Analysts    []string
	State       string
	Decision    string
	FailureKind string
	Message     string
	Polls       int
	Result      string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Succeeded reports whether the recorded run completed successfully.
func (r Record) Succeeded() bool {
	return r.State == string(flow.StateSucceeded)
}

// NewRecord builds a record from the request that was submitted and the
// outcome the flow returned.
func NewRecord(req models.AnalysisRequest, out flow.Outcome, started, finished time.Time) Record {
	analysts := make([]string, 0, len(req.Analysts))
	for _, a := range req.Analysts {
		analysts = append(analysts, string(a))
	}
	rec := Record{
		JobID:      out.JobID,
		Ticker:     req.Ticker,
		Date:       req.Date,
		Provider:   req.LLMProvider,
		QuickModel: req.QuickThinkModel,
		DeepModel:  req.DeepThinkModel,
		Analysts:   analysts,
		State:      string(out.State),
		Polls:      out.Polls,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}
	if out.Succeeded() {
		rec.Decision = string(out.Decision)
		if out.Result != nil {
			rec.Message = out.Result.Decision
			rec.Result = out.Result.Pretty()
		}
	}
	if out.Err != nil {
		rec.FailureKind = string(out.Err.Kind)
		rec.Message = out.Err.Message
	}
	return rec
}

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS analyses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL DEFAULT '',
    ticker TEXT NOT NULL DEFAULT '',
    trade_date TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    quick_model TEXT NOT NULL DEFAULT '',
    deep_model TEXT NOT NULL DEFAULT '',
    analysts TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL,
    decision TEXT NOT NULL DEFAULT '',
    failure_kind TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    polls INTEGER NOT NULL DEFAULT 0,
    result TEXT NOT NULL DEFAULT '',
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_ticker ON analyses(ticker);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Record stores rec and returns its id.
func (s *Store) Record(ctx context.Context, rec Record) (int64, error) {
	if strings.TrimSpace(rec.State) == "" {
		return 0, fmt.Errorf("record state is required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO analyses (job_id, ticker, trade_date, provider, quick_model, deep_model, analysts,
    state, decision, failure_kind, message, polls, result, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.JobID, rec.Ticker, rec.Date, rec.Provider, rec.QuickModel, rec.DeepModel,
		strings.Join(rec.Analysts, ","), rec.State, rec.Decision, rec.FailureKind, rec.Message,
		rec.Polls, rec.Result, rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("analysis id: %w", err)
	}
	return id, nil
}

const selectColumns = `id, job_id, ticker, trade_date, provider, quick_model, deep_model, analysts,
    state, decision, failure_kind, message, polls, result, started_at, finished_at`

// List returns the most recent records first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+selectColumns+`
FROM analyses
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses rows: %w", err)
	}
	return records, nil
}

// Get loads a record by id. It returns ErrNotFound for unknown ids.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+selectColumns+`
FROM analyses
WHERE id = ?
LIMIT 1
`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		analysts string
	)
	err := row.Scan(&rec.ID, &rec.JobID, &rec.Ticker, &rec.Date, &rec.Provider, &rec.QuickModel,
		&rec.DeepModel, &analysts, &rec.State, &rec.Decision, &rec.FailureKind, &rec.Message,
		&rec.Polls, &rec.Result, &rec.StartedAt, &rec.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan analysis: %w", err)
	}
	if analysts != "" {
		rec.Analysts = strings.Split(analysts, ",")
	}
	return rec, nil
}
