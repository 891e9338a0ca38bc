package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/marketplace/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions (PRAGMA user_version):
// 0 - entries table with the kind index
// 1 - index on entries.subject for per-store and per-user lookups
const currentSchemaVersion = 1

// connParams configure every pooled connection. The pool holds one.
const connParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

var (
	// ErrSchemaTooNew is returned when the database was migrated by a newer
	// build than this one.
	ErrSchemaTooNew = errors.New("journal schema is newer than this build")

	// ErrJournalVersion is returned when a recorded entry was encoded with a
	// journal version this build does not read.
	ErrJournalVersion = errors.New("unsupported journal version")
)

// Store is the durable marketplace journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path, migrates it to the current
// schema and checks that every recorded entry carries ir.JournalVersion.
// Opening the same path repeatedly is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+connParams)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, path: path}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) prepare() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		return err
	}
	return s.checkJournalVersion()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// migrate brings an older journal up to currentSchemaVersion in one
// transaction. A journal written by a newer build is refused untouched.
func (s *Store) migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: user_version %d, supported %d", ErrSchemaTooNew, version, currentSchemaVersion)
	}
	if version == currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin tx: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_subject ON entries(subject, seq)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("migrate: set user_version: %w", err)
	}
	return tx.Commit()
}

// checkJournalVersion reports the first entry not encoded with
// ir.JournalVersion.
func (s *Store) checkJournalVersion() error {
	var (
		seq     int64
		version string
	)
	err := s.db.QueryRow(`
		SELECT seq, journal_version FROM entries
		WHERE journal_version != ?
		ORDER BY seq LIMIT 1
	`, ir.JournalVersion).Scan(&seq, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check journal version: %w", err)
	}
	return fmt.Errorf("%w: entry %d has version %q, want %q", ErrJournalVersion, seq, version, ir.JournalVersion)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
