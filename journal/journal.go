// Package journal records top-level lispy inputs in SQLite so a session's
// definitions survive a restart.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Entry is one recorded input.
type Entry struct {
	ID        int64
	Session   string
	Source    string
	CreatedAt time.Time
}

// Journal is an append-only log of inputs. Each Open starts a new session.
type Journal struct {
	db      *sql.DB
	path    string
	session string
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Journal{db: db, path: path, session: uuid.NewString()}, nil
}

// Session returns the id stamped on entries appended through this handle.
func (j *Journal) Session() string { return j.session }

func (j *Journal) Path() string { return j.path }

// Append records source under the current session.
func (j *Journal) Append(source string) error {
	_, err := j.db.Exec(
		`INSERT INTO entries (session, source, created_at) VALUES (?, ?, ?)`,
		j.session, source, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// Entries returns every entry in insertion order.
func (j *Journal) Entries() ([]Entry, error) {
	rows, err := j.db.Query(`SELECT id, session, source, created_at FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &created); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("entry %d: bad timestamp %q: %w", e.ID, created, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return entries, nil
}

// Replay calls fn with each recorded source in order, stopping at the first
// error.
func (j *Journal) Replay(fn func(source string) error) error {
	entries, err := j.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e.Source); err != nil {
			return err
		}
	}
	return nil
}

// Truncate removes every entry.
func (j *Journal) Truncate() error {
	if _, err := j.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
