// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/ajoledger/internal/storage"
)

// dateLayout is the storage format for calendar dates (due dates, start
// dates). Lexicographic comparison matches chronological order.
const dateLayout = "2006-01-02"

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
//
// Writes that span multiple statements are serialized per group with a keyed
// mutex: two concurrent position swaps, or a swap racing a distribution
// execution, run one after the other inside their own transactions. The
// schema's unique and partial-unique indexes enforce the same invariants as
// a second line of defense.
type SQLiteStore struct {
	db    *sql.DB
	locks sync.Map // groupID -> *sync.Mutex
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The pure Go driver opens one connection per call; a single writer
	// avoids SQLITE_BUSY under the per-group locking scheme.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// groupLock returns the mutex serializing multi-statement writes for a
// group, creating it on first use.
func (s *SQLiteStore) groupLock(groupID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(groupID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// withGroupTx runs fn inside a transaction while holding the group's lock.
// The transaction is rolled back unless fn returns nil, so a caller that
// times out never observes a partially applied state.
func (s *SQLiteStore) withGroupTx(ctx context.Context, groupID string, fn func(tx *sql.Tx) error) error {
	lock := s.groupLock(groupID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure (the driver exposes no typed error for it).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
