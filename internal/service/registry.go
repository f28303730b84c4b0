package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"subway/internal/domain"
	"subway/internal/repository"
)

// StationRegistry resolves station records for line rendering. Lookups go
// through an LRU cache in front of the repository.
type StationRegistry struct {
	repo  repository.Repository
	cache gcache.Cache
}

// NewStationRegistry creates a registry caching up to size stations for ttl.
// A zero ttl keeps entries until evicted.
func NewStationRegistry(repo repository.Repository, size int, ttl time.Duration) *StationRegistry {
	if size <= 0 {
		size = 1024
	}
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &StationRegistry{
		repo:  repo,
		cache: builder.Build(),
	}
}

// FindStationByID returns the station or a not-found error
func (r *StationRegistry) FindStationByID(ctx context.Context, id int64) (*domain.Station, error) {
	if cached, err := r.cache.Get(id); err == nil {
		station := cached.(domain.Station)
		return &station, nil
	}

	station, err := r.repo.GetStation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load station %d: %w", id, err)
	}
	if station == nil {
		return nil, domain.NewNotFoundError("registry.find_station", fmt.Sprintf("station %d not found", id))
	}

	r.cache.Set(id, *station)
	return station, nil
}

// NameExists reports whether a station with this name is stored
func (r *StationRegistry) NameExists(ctx context.Context, name string) (bool, error) {
	station, err := r.repo.GetStationByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to look up station %q: %w", name, err)
	}
	return station != nil, nil
}

// Invalidate drops one station from the cache
func (r *StationRegistry) Invalidate(id int64) {
	r.cache.Remove(id)
}

// Purge empties the cache
func (r *StationRegistry) Purge() {
	r.cache.Purge()
}

var _ domain.StationRegistry = (*StationRegistry)(nil)
