// Package store persists jobs, configuration, and execution history in a
// single SQLite file. It is the only coordination point between workers:
// every mutation is a conditional update whose precondition is re-checked
// by SQLite at the moment of the write.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"queuectl/internal/model"
)

// busyTimeout bounds how long a statement waits for the file lock before
// failing with ErrStoreContention.
const busyTimeout = 10 * time.Second

// timeFormat is fixed-width UTC so that lexicographic comparison of stored
// timestamps matches chronological order inside SQL.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store at open time.
type Option func(*Store)

// WithClock overrides the time source. Tests use this to make retry_at and
// eligibility checks deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	state       TEXT NOT NULL,
	attempts    INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	locked_by   TEXT,
	locked_at   TEXT,
	retry_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	key        TEXT PRIMARY KEY,
	value      INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_executions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	timeout      INTEGER NOT NULL,
	error        TEXT,
	output       TEXT
);
CREATE INDEX IF NOT EXISTS idx_executions_job_id ON job_executions(job_id);
`

// Open creates the data directory if needed, opens (or creates) jobs.db
// inside it, applies the schema, and seeds default config values.
func Open(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "jobs.db")
	// _txlock=immediate makes transactions take the write lock up front,
	// so a read-then-write transaction waits on the busy timeout instead
	// of failing on lock upgrade under concurrent workers.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=1&_busy_timeout=%d&_txlock=immediate",
		dbPath, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(`
		INSERT OR IGNORE INTO config (key, value) VALUES
		('max_retries', '3'),
		('backoff_base', '2')`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed config defaults: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the store's current time. Exposed so callers share the same
// clock the store uses for eligibility checks.
func (s *Store) Now() time.Time {
	return s.now()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(timeFormat, v)
}

// mapErr translates SQLite driver errors into the package taxonomy.
func mapErr(op string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch {
		case serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey,
			serr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return model.ErrDuplicateID
		case serr.Code == sqlite3.ErrBusy, serr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %s", model.ErrStoreContention, op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
