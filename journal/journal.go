// Package journal keeps a local sqlite3 record of the execution requests
// submitted through this client, so the CLI can list and track past
// submissions without asking the server.
package journal

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/util"
)

const migration = `
CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT NOT NULL PRIMARY KEY,
	execution_id  TEXT NOT NULL UNIQUE,
	server        TEXT NOT NULL,
	name          TEXT NOT NULL,
	label         TEXT NOT NULL,
	emulator_type TEXT NOT NULL,
	status        TEXT NOT NULL,
	submitted_at  INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
`

// Journal for sqlite3
type Journal struct {
	dbPath string
	db     *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if util.HasError(err) {
		return nil, err
	}

	if _, err := db.Exec(migration); util.HasError(err) {
		_ = db.Close()
		return nil, err
	}

	return &Journal{
		dbPath: path,
		db:     db,
	}, nil
}

func (j *Journal) Close() {
	if j.db != nil {
		_ = j.db.Close()
	}
}

// Record stores a fresh submission. The row id and timestamps are
// filled in; the status starts as NEW when the entry carries none.
func (j *Journal) Record(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.Status == "" {
		entry.Status = domain.StatusNew
	}

	now := time.Now()
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = now
	}
	entry.UpdatedAt = now

	_, err := j.db.Exec(
		`INSERT INTO submissions
			(id, execution_id, server, name, label, emulator_type, status, submitted_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ExecutionID, entry.Server, entry.Name, entry.Label,
		entry.EmulatorType, string(entry.Status),
		entry.SubmittedAt.Unix(), entry.UpdatedAt.Unix(),
	)

	if isUniqueViolation(err) {
		return ErrAlreadyRecorded
	}

	return err
}

// UpdateStatus moves a recorded submission to the observed status.
// Changes the lifecycle does not allow, which happen when a stale
// listing page is replayed, are skipped rather than surfaced.
func (j *Journal) UpdateStatus(executionID string, status domain.Status) error {
	entry, err := j.Find(executionID)
	if util.HasError(err) {
		return err
	}

	if err := domain.ValidateTransition(entry.Status, status); util.HasError(err) {
		util.LogDebug("Journal keeps %s at %s: %v", executionID, entry.Status, err)
		return nil
	}

	if entry.Status == status {
		return nil
	}

	_, err = j.db.Exec(
		`UPDATE submissions SET status = ?, updated_at = ? WHERE execution_id = ?`,
		string(status), time.Now().Unix(), executionID,
	)
	return err
}

// Find looks a submission up by its execution request id.
func (j *Journal) Find(executionID string) (*Entry, error) {
	row := j.db.QueryRow(
		`SELECT id, execution_id, server, name, label, emulator_type, status, submitted_at, updated_at
			FROM submissions WHERE execution_id = ?`,
		executionID,
	)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotRecorded
	}
	if util.HasError(err) {
		return nil, err
	}

	return entry, nil
}

// List returns every recorded submission, newest first.
func (j *Journal) List() ([]*Entry, error) {
	rows, err := j.db.Query(
		`SELECT id, execution_id, server, name, label, emulator_type, status, submitted_at, updated_at
			FROM submissions ORDER BY submitted_at DESC, id DESC`,
	)
	if util.HasError(err) {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if util.HasError(err) {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scannable) (*Entry, error) {
	var (
		entry     Entry
		status    string
		submitted int64
		updated   int64
	)

	err := row.Scan(
		&entry.ID, &entry.ExecutionID, &entry.Server, &entry.Name,
		&entry.Label, &entry.EmulatorType, &status, &submitted, &updated,
	)
	if util.HasError(err) {
		return nil, err
	}

	entry.Status = domain.Status(status)
	entry.SubmittedAt = time.Unix(submitted, 0)
	entry.UpdatedAt = time.Unix(updated, 0)
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	// go-sqlite3 reports constraint violations through the error text,
	// matching on it avoids depending on the driver's cgo error types
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
