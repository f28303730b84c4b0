package domain

import (
	"context"
	"strings"
	"time"
)

// Station is a uniquely named stop. It is immutable once created and is
// referenced by id from sections.
type Station struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewStation validates and normalizes a station name
func NewStation(name string) (*Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("station.new", "station name required")
	}
	return &Station{Name: name, CreatedAt: time.Now().UTC()}, nil
}

// StationRegistry is the read-only station lookup injected into lines.
// FindStationByID returns a KindNotFound error for unknown ids.
type StationRegistry interface {
	FindStationByID(ctx context.Context, id int64) (*Station, error)
	NameExists(ctx context.Context, name string) (bool, error)
}
