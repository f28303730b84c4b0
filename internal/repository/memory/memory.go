// Package memory provides an in-memory repository. State is copied on the
// way in and out so callers never share mutable values with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"subway/internal/domain"
)

type lineRecord struct {
	id        int64
	name      string
	color     string
	version   int64
	sections  []domain.Section
	createdAt time.Time
	updatedAt time.Time
}

// Repository implements repository.Repository in memory
type Repository struct {
	mu            sync.RWMutex
	stations      map[int64]domain.Station
	lines         map[int64]*lineRecord
	nextStationID int64
	nextLineID    int64
}

// New creates an empty in-memory repository
func New() *Repository {
	return &Repository{
		stations: make(map[int64]domain.Station),
		lines:    make(map[int64]*lineRecord),
	}
}

// CreateStation stores a station and assigns its id
func (r *Repository) CreateStation(_ context.Context, station *domain.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.stations {
		if existing.Name == station.Name {
			return domain.NewValidationError("memory.create_station", fmt.Sprintf("station name %q already exists", station.Name))
		}
	}

	r.nextStationID++
	station.ID = r.nextStationID
	if station.CreatedAt.IsZero() {
		station.CreatedAt = time.Now().UTC()
	}
	r.stations[station.ID] = *station
	return nil
}

// GetStation retrieves a station by id
func (r *Repository) GetStation(_ context.Context, id int64) (*domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	station, ok := r.stations[id]
	if !ok {
		return nil, nil
	}
	return &station, nil
}

// GetStationByName retrieves a station by its unique name
func (r *Repository) GetStationByName(_ context.Context, name string) (*domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, station := range r.stations {
		if station.Name == name {
			s := station
			return &s, nil
		}
	}
	return nil, nil
}

// ListStations returns all stations ordered by id
func (r *Repository) ListStations(_ context.Context) ([]domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stations := make([]domain.Station, 0, len(r.stations))
	for _, station := range r.stations {
		stations = append(stations, station)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })
	return stations, nil
}

// DeleteStation removes a station
func (r *Repository) DeleteStation(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stations[id]; !ok {
		return domain.NewNotFoundError("memory.delete_station", fmt.Sprintf("station %d not found", id))
	}
	if r.stationInUseLocked(id) {
		return domain.NewValidationError("memory.delete_station", fmt.Sprintf("station %d is used by a line", id))
	}
	delete(r.stations, id)
	return nil
}

// StationInUse reports whether any line has a section touching the station
func (r *Repository) StationInUse(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stationInUseLocked(id), nil
}

// CreateLine stores a new line with its sections and assigns id and version
func (r *Repository) CreateLine(_ context.Context, line *domain.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUniqueLocked("memory.create_line", 0, line.Name, line.Color); err != nil {
		return err
	}
	if err := r.checkStationsLocked("memory.create_line", line.Sections()); err != nil {
		return err
	}

	r.nextLineID++
	now := time.Now().UTC()
	line.ID = r.nextLineID
	line.Version = 1
	if line.CreatedAt.IsZero() {
		line.CreatedAt = now
	}
	line.UpdatedAt = now

	r.lines[line.ID] = &lineRecord{
		id:        line.ID,
		name:      line.Name,
		color:     line.Color,
		version:   line.Version,
		sections:  line.Sections(),
		createdAt: line.CreatedAt,
		updatedAt: line.UpdatedAt,
	}
	return nil
}

// GetLine loads a line and rebuilds its topology
func (r *Repository) GetLine(_ context.Context, id int64) (*domain.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.lines[id]
	if !ok {
		return nil, nil
	}
	return rec.toDomain()
}

// FindLineByName looks a line up by its unique name
func (r *Repository) FindLineByName(_ context.Context, name string) (*domain.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.lines {
		if rec.name == name {
			return rec.toDomain()
		}
	}
	return nil, nil
}

// FindLineByColor looks a line up by its unique color
func (r *Repository) FindLineByColor(_ context.Context, color string) (*domain.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.lines {
		if rec.color == color {
			return rec.toDomain()
		}
	}
	return nil, nil
}

// ListLines returns all lines ordered by id
func (r *Repository) ListLines(_ context.Context) ([]*domain.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.lines))
	for id := range r.lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]*domain.Line, 0, len(ids))
	for _, id := range ids {
		line, err := r.lines[id].toDomain()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// UpdateLineInfo stores a new name and color
func (r *Repository) UpdateLineInfo(_ context.Context, line *domain.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lines[line.ID]
	if !ok {
		return domain.NewNotFoundError("memory.update_line", fmt.Sprintf("line %d not found", line.ID))
	}
	if err := r.checkUniqueLocked("memory.update_line", line.ID, line.Name, line.Color); err != nil {
		return err
	}

	rec.name = line.Name
	rec.color = line.Color
	rec.updatedAt = time.Now().UTC()
	return nil
}

// DeleteLine removes a line and its sections
func (r *Repository) DeleteLine(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[id]; !ok {
		return domain.NewNotFoundError("memory.delete_line", fmt.Sprintf("line %d not found", id))
	}
	delete(r.lines, id)
	return nil
}

// SaveSections replaces a line's section set if its version is current
func (r *Repository) SaveSections(_ context.Context, line *domain.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lines[line.ID]
	if !ok {
		return domain.NewNotFoundError("memory.save_sections", fmt.Sprintf("line %d not found", line.ID))
	}
	if rec.version != line.Version {
		return domain.NewConflictError("memory.save_sections",
			fmt.Sprintf("line %d is at version %d, write was based on %d", line.ID, rec.version, line.Version))
	}
	if err := r.checkStationsLocked("memory.save_sections", line.Sections()); err != nil {
		return err
	}

	rec.sections = line.Sections()
	rec.version++
	rec.updatedAt = time.Now().UTC()
	line.Version = rec.version
	line.UpdatedAt = rec.updatedAt
	return nil
}

// Close is a no-op
func (r *Repository) Close() error {
	return nil
}

func (r *Repository) checkUniqueLocked(op string, selfID int64, name, color string) error {
	for id, rec := range r.lines {
		if id == selfID {
			continue
		}
		if rec.name == name {
			return domain.NewValidationError(op, fmt.Sprintf("line name %q already exists", name))
		}
		if rec.color == color {
			return domain.NewValidationError(op, fmt.Sprintf("line color %q already exists", color))
		}
	}
	return nil
}

func (r *Repository) stationInUseLocked(id int64) bool {
	for _, rec := range r.lines {
		for _, s := range rec.sections {
			if s.UpStationID() == id || s.DownStationID() == id {
				return true
			}
		}
	}
	return false
}

// checkStationsLocked stands in for the SQL backends' foreign keys
func (r *Repository) checkStationsLocked(op string, sections []domain.Section) error {
	for _, s := range sections {
		for _, id := range []int64{s.UpStationID(), s.DownStationID()} {
			if _, ok := r.stations[id]; !ok {
				return domain.NewNotFoundError(op, fmt.Sprintf("station %d not found", id))
			}
		}
	}
	return nil
}

func (rec *lineRecord) toDomain() (*domain.Line, error) {
	sections := make([]domain.Section, len(rec.sections))
	copy(sections, rec.sections)

	line, err := domain.RestoreLine(rec.id, rec.name, rec.color, rec.version, sections)
	if err != nil {
		return nil, fmt.Errorf("failed to restore line %d: %w", rec.id, err)
	}
	line.CreatedAt = rec.createdAt
	line.UpdatedAt = rec.updatedAt
	return line, nil
}
