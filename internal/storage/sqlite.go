// Package storage is the embedded store of record: events, access grants,
// and the audit log, in a single SQLite file with WAL journaling.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Open opens the read-write store. The daemon opens exactly one of these;
// the analyzer owns its write path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	// Some environments restrict SQLite creating new files but allow opening
	// an existing one. Pre-create the DB file to avoid SQLITE_CANTOPEN.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("precreate sqlite db %s: %w", path, err)
	}
	_ = f.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens a query-side handle. WAL mode lets these read
// concurrently with the single writer.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	var userVersion int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&userVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read user_version: %w", err)
	}
	if userVersion != 1 {
		_ = db.Close()
		return nil, fmt.Errorf("unsupported sqlite schema version %d", userVersion)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) init() error {
	// synchronous=NORMAL is a deliberate latency/durability trade-off for
	// local monitoring data.
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA foreign_keys=ON;`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			if strings.Contains(err.Error(), "readonly") {
				continue
			}
			return fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	var userVersion int
	if err := s.db.QueryRow(`PRAGMA user_version;`).Scan(&userVersion); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if userVersion == 0 {
		if err := s.migrateToV1(); err != nil {
			return err
		}
		if _, err := s.db.Exec(`PRAGMA user_version=1;`); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		userVersion = 1
	}
	if userVersion != 1 {
		return fmt.Errorf("unsupported sqlite schema version %d", userVersion)
	}
	return nil
}

func (s *Store) migrateToV1() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS events(
			event_id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			severity TEXT NOT NULL,
			type TEXT NOT NULL,
			service_id TEXT NOT NULL DEFAULT 'system',
			fingerprint TEXT,
			snapshot BLOB,
			status TEXT NOT NULL DEFAULT 'open'
		);`,
		`CREATE TABLE IF NOT EXISTS grants(
			id TEXT PRIMARY KEY,
			service_id TEXT NOT NULL,
			scopes TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			token TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_events_severity ON events(severity);`,
		`CREATE INDEX IF NOT EXISTS idx_events_service ON events(service_id);`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, st := range ddl {
		if _, err := tx.Exec(st); err != nil {
			return fmt.Errorf("sqlite ddl: %w", err)
		}
	}
	return tx.Commit()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
