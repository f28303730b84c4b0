package service

import (
	"context"
	"fmt"
	"time"

	"subway/internal/domain"
	"subway/internal/metrics"
	"subway/internal/repository"
)

// StationService provides business logic for stations
type StationService struct {
	repo     repository.Repository
	registry *StationRegistry
	eventBus *EventBus
	metrics  *metrics.Metrics
}

// NewStationService creates a new station service
func NewStationService(repo repository.Repository, registry *StationRegistry, eventBus *EventBus, m *metrics.Metrics) *StationService {
	return &StationService{
		repo:     repo,
		registry: registry,
		eventBus: eventBus,
		metrics:  m,
	}
}

// CreateStation creates a station with a unique, non-empty name
func (s *StationService) CreateStation(ctx context.Context, name string) (station *domain.Station, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("create_station", started, err) }()

	station, err = domain.NewStation(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateStation(ctx, station); err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventStationCreated,
		Payload: station,
	})

	return station, nil
}

// GetStation retrieves a single station by id
func (s *StationService) GetStation(ctx context.Context, id int64) (*domain.Station, error) {
	station, err := s.repo.GetStation(ctx, id)
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, domain.NewNotFoundError("station.get", fmt.Sprintf("station %d not found", id))
	}
	return station, nil
}

// ListStations returns all stations
func (s *StationService) ListStations(ctx context.Context) ([]domain.Station, error) {
	return s.repo.ListStations(ctx)
}

// DeleteStation removes a station that no line uses
func (s *StationService) DeleteStation(ctx context.Context, id int64) (err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("delete_station", started, err) }()

	// Evicted on both sides of the delete. The store refuses a station
	// that a section still references.
	s.registry.Invalidate(id)
	if err := s.repo.DeleteStation(ctx, id); err != nil {
		return err
	}
	s.registry.Invalidate(id)

	s.eventBus.Publish(Event{
		Type:    EventStationDeleted,
		Payload: map[string]int64{"station_id": id},
	})

	return nil
}
