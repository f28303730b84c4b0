// Package sqlite provides the SQLite-backed repository
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"subway/internal/repository/sqlstore"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	*sqlstore.Store
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		line_id INTEGER NOT NULL,
		up_station_id INTEGER NOT NULL,
		down_station_id INTEGER NOT NULL,
		distance INTEGER NOT NULL CHECK (distance > 0),
		PRIMARY KEY (line_id, up_station_id),
		UNIQUE (line_id, down_station_id),
		FOREIGN KEY (line_id) REFERENCES lines(id) ON DELETE CASCADE,
		FOREIGN KEY (up_station_id) REFERENCES stations(id),
		FOREIGN KEY (down_station_id) REFERENCES stations(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_up ON sections(up_station_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_down ON sections(down_station_id)`,
}

// Dialect describes SQLite to the shared store
var Dialect = sqlstore.Dialect{
	Name:   "sqlite",
	Schema: schema,
	Rebind: sqlstore.KeepQuestionMarks,
	IsUniqueViolation: func(err error) bool {
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

// New opens (or creates) the database at dbPath. ":memory:" gives a private
// in-memory database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers and keeps :memory: a single database
	db.SetMaxOpenConns(1)

	store, err := sqlstore.New(context.Background(), db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{Store: store}, nil
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
