// Package postgres provides the PostgreSQL-backed repository
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"subway/internal/repository/sqlstore"
)

// Repository implements repository.Repository using PostgreSQL
type Repository struct {
	*sqlstore.Store
}

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL UNIQUE,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		line_id BIGINT NOT NULL REFERENCES lines(id) ON DELETE CASCADE,
		up_station_id BIGINT NOT NULL REFERENCES stations(id),
		down_station_id BIGINT NOT NULL REFERENCES stations(id),
		distance INTEGER NOT NULL CHECK (distance > 0),
		PRIMARY KEY (line_id, up_station_id),
		UNIQUE (line_id, down_station_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_up ON sections(up_station_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sections_down ON sections(down_station_id)`,
}

// Dialect describes PostgreSQL to the shared store
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Schema:            schema,
	Rebind:            sqlstore.DollarPlaceholders,
	IsUniqueViolation: isUniqueViolation,
}

// New connects to dsn through the pgx database/sql driver
func New(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{Store: store}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
