package repository

import (
	"context"

	"subway/internal/domain"
)

// Repository defines the storage contract for stations, lines and their
// sections. Lookups return (nil, nil) when the entity does not exist.
type Repository interface {
	// Stations
	CreateStation(ctx context.Context, station *domain.Station) error
	GetStation(ctx context.Context, id int64) (*domain.Station, error)
	GetStationByName(ctx context.Context, name string) (*domain.Station, error)
	ListStations(ctx context.Context) ([]domain.Station, error)
	// DeleteStation removes a station no section references, checking and
	// deleting atomically. A referenced station is a validation error.
	DeleteStation(ctx context.Context, id int64) error
	StationInUse(ctx context.Context, id int64) (bool, error)

	// Lines
	CreateLine(ctx context.Context, line *domain.Line) error
	GetLine(ctx context.Context, id int64) (*domain.Line, error)
	FindLineByName(ctx context.Context, name string) (*domain.Line, error)
	FindLineByColor(ctx context.Context, color string) (*domain.Line, error)
	ListLines(ctx context.Context) ([]*domain.Line, error)
	UpdateLineInfo(ctx context.Context, line *domain.Line) error
	DeleteLine(ctx context.Context, id int64) error

	// SaveSections replaces the line's section set wholesale if the stored
	// version still equals line.Version, then bumps line.Version. A stale
	// version yields a domain conflict error.
	SaveSections(ctx context.Context, line *domain.Line) error

	// Close releases resources
	Close() error
}
