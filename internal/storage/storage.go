// Package storage provides SQLite-backed persistence for settings, the
// watchlist, positions and cached price history.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sqlx.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/gemonitor/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "gemonitor", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			data            TEXT NOT NULL,
			updated_at      INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			item_id         INTEGER PRIMARY KEY,
			name            TEXT NOT NULL,
			added_at        INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id               TEXT PRIMARY KEY,
			item_id          INTEGER NOT NULL,
			item_name        TEXT NOT NULL,
			quantity         INTEGER NOT NULL,
			buy_price        REAL NOT NULL,
			bought_at        INTEGER NOT NULL,
			acknowledged_at  INTEGER,
			recovered_at     INTEGER,
			recovery_price   REAL,
			sell_price       REAL,
			sold_at          INTEGER,
			tax_rate_applied REAL,
			tax_paid         REAL,
			profit           REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_item ON positions(item_id)`,
		`CREATE TABLE IF NOT EXISTS timeseries_cache (
			item_id         INTEGER NOT NULL,
			timestep        TEXT NOT NULL,
			fetched_at      INTEGER NOT NULL,
			points          TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (item_id, timestep)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// getJSON loads a JSON column into out. ok is false when no row matched.
func (s *Storage) getJSON(ctx context.Context, out any, query string, args ...any) (bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return true, nil
}
