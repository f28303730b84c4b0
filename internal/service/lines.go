package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"subway/internal/domain"
	"subway/internal/metrics"
	"subway/internal/repository"
)

// DefaultMaxRetries bounds how often a conflicted section write is retried
const DefaultMaxRetries = 3

// LineView is a line as returned to clients: stations hydrated and in
// path order, sections in path order
type LineView struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Color         string           `json:"color"`
	Version       int64            `json:"version"`
	Stations      []domain.Station `json:"stations"`
	Sections      []domain.Section `json:"sections"`
	TotalDistance int              `json:"total_distance"`
	Fingerprint   string           `json:"fingerprint"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CreateLineRequest carries a new line and its first section
type CreateLineRequest struct {
	Name          string `json:"name"`
	Color         string `json:"color"`
	UpStationID   int64  `json:"upStationId"`
	DownStationID int64  `json:"downStationId"`
	Distance      int    `json:"distance"`
}

// UpdateLineRequest carries a new name and color
type UpdateLineRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// SectionRequest carries a section to add to a line
type SectionRequest struct {
	UpStationID   int64 `json:"upStationId"`
	DownStationID int64 `json:"downStationId"`
	Distance      int   `json:"distance"`
}

// LineService provides business logic for lines and their sections.
// Mutations of one line are serialised in-process and persisted with an
// optimistic version check, retried on conflict.
type LineService struct {
	repo       repository.Repository
	registry   *StationRegistry
	eventBus   *EventBus
	metrics    *metrics.Metrics
	locks      *keyedMutex
	maxRetries int
}

// NewLineService creates a new line service
func NewLineService(repo repository.Repository, registry *StationRegistry, eventBus *EventBus, m *metrics.Metrics, maxRetries int) *LineService {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &LineService{
		repo:       repo,
		registry:   registry,
		eventBus:   eventBus,
		metrics:    m,
		locks:      newKeyedMutex(),
		maxRetries: maxRetries,
	}
}

// CreateLine creates a line with one section between two existing stations
func (s *LineService) CreateLine(ctx context.Context, req CreateLineRequest) (view *LineView, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("create_line", started, err) }()

	section, err := domain.NewSection(req.UpStationID, req.DownStationID, req.Distance)
	if err != nil {
		return nil, err
	}
	line, err := domain.NewLine(req.Name, req.Color, section)
	if err != nil {
		return nil, err
	}
	if err := s.requireStations(ctx, section); err != nil {
		return nil, err
	}
	if err := s.repo.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	s.metrics.AddLines(1)

	view, err = s.view(ctx, line)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventLineCreated,
		Payload: view,
	})

	return view, nil
}

// GetLine returns one line with its ordered stations
func (s *LineService) GetLine(ctx context.Context, id int64) (*LineView, error) {
	line, err := s.loadLine(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, line)
}

// ListLines returns every line with its ordered stations
func (s *LineService) ListLines(ctx context.Context) ([]LineView, error) {
	lines, err := s.repo.ListLines(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]LineView, 0, len(lines))
	for _, line := range lines {
		view, err := s.view(ctx, line)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// UpdateLine renames and recolors a line
func (s *LineService) UpdateLine(ctx context.Context, id int64, req UpdateLineRequest) (view *LineView, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("update_line", started, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	line, err := s.loadLine(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := line.Rename(req.Name, req.Color); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLineInfo(ctx, line); err != nil {
		return nil, err
	}

	view, err = s.view(ctx, line)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventLineUpdated,
		Payload: view,
	})

	return view, nil
}

// DeleteLine removes a line and its sections
func (s *LineService) DeleteLine(ctx context.Context, id int64) (err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("delete_line", started, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.DeleteLine(ctx, id); err != nil {
		return err
	}
	s.metrics.AddLines(-1)

	s.eventBus.Publish(Event{
		Type:    EventLineDeleted,
		Payload: map[string]int64{"line_id": id},
	})

	return nil
}

// AddSection adds a section to a line, extending an end or splitting an
// existing section
func (s *LineService) AddSection(ctx context.Context, lineID int64, req SectionRequest) (view *LineView, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("add_section", started, err) }()

	section, err := domain.NewSection(req.UpStationID, req.DownStationID, req.Distance)
	if err != nil {
		return nil, err
	}
	if err := s.requireStations(ctx, section); err != nil {
		return nil, err
	}

	line, _, err := s.mutate(ctx, "add_section", lineID, func(line *domain.Line) error {
		return line.AddSection(section)
	})
	if err != nil {
		return nil, err
	}

	view, err = s.view(ctx, line)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type: EventSectionAdded,
		Payload: map[string]interface{}{
			"line_id": lineID,
			"section": section,
			"version": line.Version,
		},
	})

	return view, nil
}

// RemoveStation removes a station from a line, merging the sections around
// it. A line left without sections is deleted and a nil view is returned.
func (s *LineService) RemoveStation(ctx context.Context, lineID, stationID int64) (view *LineView, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("remove_station", started, err) }()

	line, deleted, err := s.mutate(ctx, "remove_station", lineID, func(line *domain.Line) error {
		return line.RemoveStation(stationID)
	})
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type: EventStationRemoved,
		Payload: map[string]interface{}{
			"line_id":    lineID,
			"station_id": stationID,
			"version":    line.Version,
		},
	})

	if deleted {
		s.metrics.AddLines(-1)
		s.eventBus.Publish(Event{
			Type:    EventLineDeleted,
			Payload: map[string]int64{"line_id": lineID},
		})
		return nil, nil
	}

	return s.view(ctx, line)
}

// replaceLine overwrites name, color and the whole section set of an
// existing line
func (s *LineService) replaceLine(ctx context.Context, lineID int64, name, color string, sections []domain.Section) error {
	unlock := s.locks.Lock(lineID)
	defer unlock()

	line, err := s.loadLine(ctx, lineID)
	if err != nil {
		return err
	}
	// Sections are checked on the loaded copy before the rename is stored
	if err := line.ReplaceSections(sections); err != nil {
		return err
	}
	if line.Name != name || line.Color != color {
		if err := line.Rename(name, color); err != nil {
			return err
		}
		if err := s.repo.UpdateLineInfo(ctx, line); err != nil {
			return err
		}
	}

	_, _, err = s.mutateLocked(ctx, "replace_sections", lineID, func(line *domain.Line) error {
		return line.ReplaceSections(sections)
	})
	return err
}

// mutate runs one load-apply-save cycle under the line's lock
func (s *LineService) mutate(ctx context.Context, op string, lineID int64, apply func(*domain.Line) error) (*domain.Line, bool, error) {
	unlock := s.locks.Lock(lineID)
	defer unlock()
	return s.mutateLocked(ctx, op, lineID, apply)
}

// mutateLocked reloads and reapplies on a version conflict, up to
// maxRetries extra attempts. The bool result reports that the line became
// empty and was deleted instead of saved.
func (s *LineService) mutateLocked(ctx context.Context, op string, lineID int64, apply func(*domain.Line) error) (*domain.Line, bool, error) {
	for attempt := 0; ; attempt++ {
		line, err := s.loadLine(ctx, lineID)
		if err != nil {
			return nil, false, err
		}
		if err := apply(line); err != nil {
			return nil, false, err
		}

		if line.IsEmpty() {
			if err := s.repo.DeleteLine(ctx, lineID); err != nil {
				return nil, false, err
			}
			return line, true, nil
		}

		err = s.repo.SaveSections(ctx, line)
		if err == nil {
			return line, false, nil
		}
		if !domain.IsKind(err, domain.KindConflict) {
			return nil, false, err
		}

		s.metrics.IncConflict()
		if attempt >= s.maxRetries {
			return nil, false, err
		}
		log.Printf("line %d: %s hit a version conflict, retrying (%d/%d)", lineID, op, attempt+1, s.maxRetries)
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
	}
}

func (s *LineService) loadLine(ctx context.Context, id int64) (*domain.Line, error) {
	line, err := s.repo.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.NewNotFoundError("line.get", fmt.Sprintf("line %d not found", id))
	}
	return line, nil
}

func (s *LineService) requireStations(ctx context.Context, section domain.Section) error {
	for _, id := range []int64{section.UpStationID(), section.DownStationID()} {
		if _, err := s.registry.FindStationByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *LineService) view(ctx context.Context, line *domain.Line) (*LineView, error) {
	stations, err := line.Stations(ctx, s.registry)
	if err != nil {
		return nil, err
	}
	topology := line.Topology()
	return &LineView{
		ID:            line.ID,
		Name:          line.Name,
		Color:         line.Color,
		Version:       line.Version,
		Stations:      stations,
		Sections:      line.Sections(),
		TotalDistance: topology.TotalDistance(),
		Fingerprint:   topology.Fingerprint(),
		CreatedAt:     line.CreatedAt,
		UpdatedAt:     line.UpdatedAt,
	}, nil
}
