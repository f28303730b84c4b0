package main

import (
	"context"
	"fmt"
	"log"

	"subway/internal/config"
	"subway/internal/repository"
	"subway/internal/repository/memory"
	"subway/internal/repository/postgres"
	"subway/internal/repository/sqlite"
)

// openRepository selects the storage backend named by the config
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (repository.Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Println("Using in-memory repository; data is lost on exit")
		return memory.New(), nil
	case config.DriverSQLite:
		repo, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Printf("Database opened: %s", cfg.Path)
		return repo, nil
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		log.Println("Connected to PostgreSQL")
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
