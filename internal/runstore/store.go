package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hochfrequenz/se-arch/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run history
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records the start of a run
func (s *Store) BeginRun(run domain.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, mode, action, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, string(run.Mode), string(run.Action), run.StartedAt)
	return err
}

// FinishRun stores the final counters of a run
func (s *Store) FinishRun(run domain.Run) error {
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}
	_, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, failed = ?, deleted = ?, bytes = ?
		WHERE id = ?
	`, finished, run.Processed, run.Skipped, run.Failed, run.Deleted, run.Bytes, run.ID)
	return err
}

// Write stores a log entry for its run
func (s *Store) Write(entry domain.LogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO entries (run_id, timestamp, source_folder, source_file_name, target, outcome, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RunID,
		entry.Timestamp,
		entry.SourceFolder,
		entry.SourceFileName,
		entry.Target,
		string(entry.Outcome),
		entry.Status,
	)
	return err
}

const runColumns = `id, mode, action, started_at, finished_at, processed, skipped, failed, deleted, bytes`

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(limit int) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// EntryFilter specifies filters for listing entries
type EntryFilter struct {
	RunID   string
	Outcome domain.Outcome
}

// ListEntries returns entries matching the filter in insertion order
func (s *Store) ListEntries(f EntryFilter) ([]domain.LogEntry, error) {
	query := `SELECT run_id, timestamp, source_folder, source_file_name, target, outcome, status FROM entries WHERE 1=1`
	var args []interface{}

	if f.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, f.RunID)
	}
	if f.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(f.Outcome))
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		var outcome string
		if err := rows.Scan(&e.RunID, &e.Timestamp, &e.SourceFolder, &e.SourceFileName, &e.Target, &outcome, &e.Status); err != nil {
			return nil, err
		}
		e.Outcome = domain.Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var run domain.Run
	var mode, action string
	var finished sql.NullTime

	err := row.Scan(&run.ID, &mode, &action, &run.StartedAt, &finished,
		&run.Processed, &run.Skipped, &run.Failed, &run.Deleted, &run.Bytes)
	if err != nil {
		return nil, err
	}

	run.Mode = domain.Mode(mode)
	run.Action = domain.Action(action)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
