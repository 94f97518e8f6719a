package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	inserted_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	ts             TEXT NOT NULL,
	policy_name    TEXT NOT NULL,
	policy_version TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	input          TEXT NOT NULL DEFAULT '',
	output         TEXT NOT NULL DEFAULT '',
	check_name     TEXT NOT NULL DEFAULT '',
	check_result   TEXT NOT NULL DEFAULT '',
	check_detail   TEXT NOT NULL DEFAULT '',
	tool_calls     TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_entries (status);
CREATE INDEX IF NOT EXISTS idx_audit_policy ON audit_entries (policy_name);
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_entries (ts);
`

// Store is the SQLite-backed append-only audit log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("audit: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DefaultPath returns the default audit database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mandate-audit.db")
	}
	return filepath.Join(home, ".mandate", "audit.db")
}

// Record appends one entry. The row id and insertion timestamp are
// assigned by the database.
func (s *Store) Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO audit_entries
			(ts, policy_name, policy_version, status, input, output,
			 check_name, check_result, check_detail, tool_calls, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.PolicyName, e.PolicyVersion, string(e.Status),
		e.Input, e.Output,
		e.CheckName, e.CheckResult, e.CheckDetail,
		e.ToolCalls, e.Error,
	)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Filter narrows a Query. Zero values mean "no constraint".
type Filter struct {
	Status     Status
	PolicyName string
	Since      time.Time
	Limit      int
}

const defaultQueryLimit = 50

// Query returns matching entries, most recent first.
func (s *Store) Query(f Filter) ([]Entry, error) {
	q := `SELECT id, ts, policy_name, policy_version, status, input, output,
			check_name, check_result, check_detail, tool_calls, error
		  FROM audit_entries WHERE 1=1`
	var args []any

	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.PolicyName != "" {
		q += " AND policy_name = ?"
		args = append(args, f.PolicyName)
	}
	if !f.Since.IsZero() {
		q += " AND ts >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.PolicyName, &e.PolicyVersion, &e.Status,
			&e.Input, &e.Output, &e.CheckName, &e.CheckResult, &e.CheckDetail,
			&e.ToolCalls, &e.Error); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
