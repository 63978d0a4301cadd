// Package sqlite provides the SQLite-backed persistence for the mining engine.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	sqlitemigrate "github.com/louisbranch/lodestone/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/lodestone/internal/services/mining/storage"
	"github.com/louisbranch/lodestone/internal/services/mining/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed mining persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a mining SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

var (
	_ storage.SessionStore    = (*Store)(nil)
	_ storage.UserStore       = (*Store)(nil)
	_ storage.PopulationStore = (*Store)(nil)
	_ storage.ReferralStore   = (*Store)(nil)
	_ storage.TimerStore      = (*Store)(nil)
	_ storage.InboxStore      = (*Store)(nil)
	_ storage.AttemptStore    = (*Store)(nil)
)
