// Package updatecache persists the last verified update manifest. There is
// exactly one record per installation; it reflects the most recent server
// state this client has seen and is used to skip redundant release-notes
// fetches, never as a substitute for a fresh manifest.
package updatecache

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

// recordID is the fixed identity of the singleton row.
const recordID = 1

const schema = `
CREATE TABLE IF NOT EXISTS update_check (
	id INTEGER PRIMARY KEY,
	version TEXT NOT NULL DEFAULT '',
	download_url TEXT NOT NULL DEFAULT '',
	release_notes_url TEXT NOT NULL DEFAULT ''
);`

// Record is the persisted snapshot of the last verified manifest. Empty
// fields mean no manifest has been observed yet.
type Record struct {
	Version         string `db:"version"`
	DownloadURL     string `db:"download_url"`
	ReleaseNotesURL string `db:"release_notes_url"`
}

// Store is a single-row keyed store backed by a local SQLite file.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open update cache")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize update cache schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the singleton record, creating an empty one on first use.
func (s *Store) Load() (*Record, error) {
	var record Record
	err := s.db.Get(&record,
		`SELECT version, download_url, release_notes_url FROM update_check WHERE id = ?`, recordID)
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to load update cache record")
	}
	if _, err := s.db.Exec(`INSERT INTO update_check (id) VALUES (?)`, recordID); err != nil {
		return nil, errors.Wrap(err, "failed to create update cache record")
	}
	return &Record{}, nil
}

// Put overwrites the singleton record in one transaction. The three fields are
// an atomic unit; concurrent writers serialize on the transaction, so a reader
// never observes a half-updated record.
func (s *Store) Put(record *Record) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "failed to begin update cache write")
	}
	_, err = tx.Exec(`
		INSERT INTO update_check (id, version, download_url, release_notes_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			download_url = excluded.download_url,
			release_notes_url = excluded.release_notes_url`,
		recordID, record.Version, record.DownloadURL, record.ReleaseNotesURL)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to write update cache record")
	}
	return errors.Wrap(tx.Commit(), "failed to commit update cache record")
}
