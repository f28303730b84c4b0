package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"subway/internal/codec"
	"subway/internal/domain"
	"subway/internal/metrics"
	"subway/internal/repository"
)

// Import strategies
const (
	StrategyMerge   = "merge"
	StrategyReplace = "replace"
)

// ImportResult represents the result of an import operation
type ImportResult struct {
	StationsCreated int    `json:"stations_created"`
	LinesCreated    int    `json:"lines_created"`
	LinesUpdated    int    `json:"lines_updated"`
	LinesDeleted    int    `json:"lines_deleted"`
	Strategy        string `json:"strategy"`
}

// NetworkService imports and exports whole networks as documents
type NetworkService struct {
	repo     repository.Repository
	lines    *LineService
	registry *StationRegistry
	eventBus *EventBus
	metrics  *metrics.Metrics
}

// NewNetworkService creates a new network service
func NewNetworkService(repo repository.Repository, lines *LineService, registry *StationRegistry, eventBus *EventBus, m *metrics.Metrics) *NetworkService {
	return &NetworkService{
		repo:     repo,
		lines:    lines,
		registry: registry,
		eventBus: eventBus,
		metrics:  m,
	}
}

// Import parses a document in the given format and applies it
func (s *NetworkService) Import(ctx context.Context, format string, r io.Reader, strategy string) (*ImportResult, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}
	fragment, err := c.Parse(r)
	if err != nil {
		return nil, domain.NewValidationError("network.import", err.Error())
	}
	return s.ImportFragment(ctx, fragment, strategy)
}

// ImportFragment applies a parsed document. merge creates missing stations
// and creates or rebuilds each named line; replace first deletes every line
// and station.
func (s *NetworkService) ImportFragment(ctx context.Context, fragment *domain.NetworkFragment, strategy string) (result *ImportResult, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("import_network", started, err) }()

	if strategy == "" {
		strategy = StrategyMerge
	}
	if strategy != StrategyMerge && strategy != StrategyReplace {
		return nil, domain.NewValidationError("network.import",
			fmt.Sprintf("invalid strategy %s, must be 'merge' or 'replace'", strategy))
	}
	if err := validateFragment(fragment); err != nil {
		return nil, err
	}
	// Nothing is written until every line of the document is known good
	if err := s.checkFragment(ctx, fragment, strategy); err != nil {
		return nil, err
	}

	result = &ImportResult{Strategy: strategy}

	if strategy == StrategyReplace {
		deleted, err := s.clear(ctx)
		if err != nil {
			return nil, err
		}
		result.LinesDeleted = deleted
	}

	stationIDs, err := s.ensureStations(ctx, fragment, result)
	if err != nil {
		return nil, err
	}

	for _, fl := range fragment.Lines {
		sections, err := resolveSections(fl, stationIDs)
		if err != nil {
			return nil, err
		}
		if err := s.applyLine(ctx, fl, sections, result); err != nil {
			return nil, err
		}
	}

	if lines, err := s.repo.ListLines(ctx); err == nil {
		s.metrics.SetLines(len(lines))
	}

	log.Printf("Imported network (%s): %d stations created, %d lines created, %d updated, %d deleted",
		strategy, result.StationsCreated, result.LinesCreated, result.LinesUpdated, result.LinesDeleted)

	s.eventBus.Publish(Event{
		Type:    EventNetworkImported,
		Payload: result,
	})

	return result, nil
}

// Export writes every station and line in the given format
func (s *NetworkService) Export(ctx context.Context, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	fragment, err := s.Fragment(ctx)
	if err != nil {
		return err
	}
	return c.Export(fragment, w)
}

// Fragment builds the document form of the stored network. Lines list
// their sections in path order.
func (s *NetworkService) Fragment(ctx context.Context) (*domain.NetworkFragment, error) {
	stations, err := s.repo.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(stations))
	fragment := domain.NewNetworkFragment()
	for _, station := range stations {
		names[station.ID] = station.Name
		fragment.AddStation(station.Name)
	}

	lines, err := s.repo.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		fl := domain.FragmentLine{
			Name:     line.Name,
			Color:    line.Color,
			Sections: make([]domain.FragmentSection, 0, line.Topology().Len()),
		}
		for _, section := range line.Sections() {
			up, ok := names[section.UpStationID()]
			if !ok {
				return nil, domain.NewNotFoundError("network.export", fmt.Sprintf("station %d not found", section.UpStationID()))
			}
			down, ok := names[section.DownStationID()]
			if !ok {
				return nil, domain.NewNotFoundError("network.export", fmt.Sprintf("station %d not found", section.DownStationID()))
			}
			fl.Sections = append(fl.Sections, domain.FragmentSection{Up: up, Down: down, Distance: section.Distance()})
		}
		fragment.AddLine(fl)
	}

	return fragment, nil
}

// ContentType returns the media type for an export format
func (s *NetworkService) ContentType(format string) string {
	c, err := codec.ForFormat(format)
	if err != nil {
		return "application/octet-stream"
	}
	return c.ContentType()
}

func (s *NetworkService) clear(ctx context.Context) (int, error) {
	lines, err := s.repo.ListLines(ctx)
	if err != nil {
		return 0, err
	}
	for _, line := range lines {
		if err := s.repo.DeleteLine(ctx, line.ID); err != nil {
			return 0, err
		}
	}

	stations, err := s.repo.ListStations(ctx)
	if err != nil {
		return 0, err
	}
	for _, station := range stations {
		if err := s.repo.DeleteStation(ctx, station.ID); err != nil {
			return 0, err
		}
	}
	s.registry.Purge()
	return len(lines), nil
}

func (s *NetworkService) ensureStations(ctx context.Context, fragment *domain.NetworkFragment, result *ImportResult) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, name := range fragment.StationNames() {
		station, err := s.repo.GetStationByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if station == nil {
			station, err = domain.NewStation(name)
			if err != nil {
				return nil, err
			}
			if err := s.repo.CreateStation(ctx, station); err != nil {
				return nil, err
			}
			result.StationsCreated++
		}
		ids[name] = station.ID
	}
	return ids, nil
}

func (s *NetworkService) applyLine(ctx context.Context, fl domain.FragmentLine, sections []domain.Section, result *ImportResult) error {
	existing, err := s.repo.FindLineByName(ctx, fl.Name)
	if err != nil {
		return err
	}

	if existing != nil {
		if err := s.lines.replaceLine(ctx, existing.ID, fl.Name, fl.Color, sections); err != nil {
			return lineImportError(fl.Name, err)
		}
		result.LinesUpdated++
		return nil
	}

	line, err := domain.NewLineFromSections(fl.Name, fl.Color, sections)
	if err != nil {
		return lineImportError(fl.Name, err)
	}
	if err := s.repo.CreateLine(ctx, line); err != nil {
		return lineImportError(fl.Name, err)
	}
	result.LinesCreated++
	return nil
}

// validateFragment catches document errors before anything is written
func validateFragment(fragment *domain.NetworkFragment) error {
	seen := make(map[string]bool)
	for i, fl := range fragment.Lines {
		if fl.Name == "" {
			return domain.NewValidationError("network.import", fmt.Sprintf("line %d has no name", i+1))
		}
		if seen[fl.Name] {
			return domain.NewValidationError("network.import", fmt.Sprintf("line %q appears twice", fl.Name))
		}
		seen[fl.Name] = true
		if len(fl.Sections) == 0 {
			return domain.NewValidationError("network.import", fmt.Sprintf("line %q has no sections", fl.Name))
		}
	}
	return nil
}

// checkFragment builds every line against placeholder station ids so a
// bad path, name or color rejects the document before stored state changes.
// In merge mode a color may not be taken from a stored line of another name.
func (s *NetworkService) checkFragment(ctx context.Context, fragment *domain.NetworkFragment, strategy string) error {
	placeholders := make(map[string]int64)
	for i, name := range fragment.StationNames() {
		placeholders[name] = int64(i + 1)
	}

	colors := make(map[string]string)
	for _, fl := range fragment.Lines {
		sections, err := resolveSections(fl, placeholders)
		if err != nil {
			return err
		}
		line, err := domain.NewLineFromSections(fl.Name, fl.Color, sections)
		if err != nil {
			return lineImportError(fl.Name, err)
		}

		if other, ok := colors[line.Color]; ok {
			return domain.NewValidationError("network.import",
				fmt.Sprintf("lines %q and %q share color %q", other, line.Name, line.Color))
		}
		colors[line.Color] = line.Name

		if strategy == StrategyReplace {
			continue
		}
		holder, err := s.repo.FindLineByColor(ctx, line.Color)
		if err != nil {
			return err
		}
		if holder != nil && holder.Name != line.Name {
			return domain.NewValidationError("network.import",
				fmt.Sprintf("line %q: color %q already belongs to line %q", line.Name, line.Color, holder.Name))
		}
	}
	return nil
}

func resolveSections(fl domain.FragmentLine, stationIDs map[string]int64) ([]domain.Section, error) {
	sections := make([]domain.Section, 0, len(fl.Sections))
	for _, fs := range fl.Sections {
		up, upOK := stationIDs[strings.TrimSpace(fs.Up)]
		down, downOK := stationIDs[strings.TrimSpace(fs.Down)]
		if !upOK || !downOK {
			return nil, domain.NewValidationError("network.import", fmt.Sprintf("line %q: section has an empty station name", fl.Name))
		}
		section, err := domain.NewSection(up, down, fs.Distance)
		if err != nil {
			return nil, lineImportError(fl.Name, err)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// lineImportError reports a malformed path in an import document as a
// validation failure of that document
func lineImportError(name string, err error) error {
	if domain.IsKind(err, domain.KindInvariant) || domain.IsKind(err, domain.KindValidation) {
		return domain.NewValidationError("network.import", fmt.Sprintf("line %q: %s", name, domain.Message(err)))
	}
	return err
}
