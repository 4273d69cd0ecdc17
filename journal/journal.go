// Package journal keeps a SQLite history of script runs and their outcomes.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/lantern/host"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

// Entry is one recorded run.
type Entry struct {
	ID        string
	SessionID string
	Source    string
	Outcome   *host.Outcome
	CreatedAt time.Time
}

// Journal handles SQLite storage for run outcomes
type Journal struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
	now    func() time.Time
}

// Open opens or creates the journal database at dbPath. ":memory:" gives a
// private in-memory journal.
func Open(dbPath string) (*Journal, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database alive and shared.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		outcome BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Journal{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record stores one run and returns its id.
func (j *Journal) Record(sessionID, source string, outcome *host.Outcome) (string, error) {
	data, err := host.MarshalOutcome(outcome)
	if err != nil {
		return "", fmt.Errorf("encoding outcome: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	id := uuid.NewString()
	_, err = j.db.Exec(
		"INSERT INTO runs (id, session_id, source, kind, outcome, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, sessionID, source, outcome.Kind().String(), data, j.now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	return id, nil
}

// Get retrieves a run by id
func (j *Journal) Get(id string) (*Entry, error) {
	row := j.db.QueryRow(
		"SELECT id, session_id, source, outcome, created_at FROM runs WHERE id = ?", id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return e, nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(limit int) ([]*Entry, error) {
	rows, err := j.db.Query(
		"SELECT id, session_id, source, outcome, created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("reading run: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of recorded runs per outcome kind.
func (j *Journal) Counts() (map[string]int, error) {
	rows, err := j.db.Query("SELECT kind, COUNT(*) FROM runs GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("reading count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e       Entry
		data    []byte
		created int64
	)
	if err := s.Scan(&e.ID, &e.SessionID, &e.Source, &data, &created); err != nil {
		return nil, err
	}
	outcome, err := host.UnmarshalOutcome(data)
	if err != nil {
		return nil, err
	}
	e.Outcome = outcome
	e.CreatedAt = time.Unix(0, created)
	return &e, nil
}
