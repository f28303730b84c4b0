package domain

import (
	"context"
	"strings"
	"time"
)

// Line is a named, colored route owning one topology. Version increases
// every time the stored section set is replaced.
type Line struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	topology *Topology
}

// NewLine creates an unsaved line with its initial section
func NewLine(name, color string, initial Section) (*Line, error) {
	name, color, err := normalizeLineInfo("line.new", name, color)
	if err != nil {
		return nil, err
	}
	if initial.IsZero() {
		return nil, validationError("line.new", "initial section required")
	}

	topology, err := NewTopology(nil)
	if err != nil {
		return nil, err
	}
	if err := topology.AddSection(initial); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Line{
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
		topology:  topology,
	}, nil
}

// NewLineFromSections creates an unsaved line from a complete section set,
// as read from an import document. The sections must already form one path.
func NewLineFromSections(name, color string, sections []Section) (*Line, error) {
	name, color, err := normalizeLineInfo("line.new", name, color)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, validationError("line.new", "line %q has no sections", name)
	}
	topology, err := NewTopology(sections)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Line{
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
		topology:  topology,
	}, nil
}

// RestoreLine rebuilds a persisted line, verifying the section set
func RestoreLine(id int64, name, color string, version int64, sections []Section) (*Line, error) {
	topology, err := NewTopology(sections)
	if err != nil {
		return nil, err
	}
	return &Line{
		ID:       id,
		Name:     name,
		Color:    color,
		Version:  version,
		topology: topology,
	}, nil
}

// Rename replaces the line's name and color
func (l *Line) Rename(name, color string) error {
	name, color, err := normalizeLineInfo("line.rename", name, color)
	if err != nil {
		return err
	}
	l.Name = name
	l.Color = color
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// AddSection delegates to the topology
func (l *Line) AddSection(s Section) error {
	if err := l.topo().AddSection(s); err != nil {
		return err
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveStation delegates to the topology
func (l *Line) RemoveStation(stationID int64) error {
	if err := l.topo().RemoveStation(stationID); err != nil {
		return err
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// ReplaceSections swaps the whole section set for a new, verified one
func (l *Line) ReplaceSections(sections []Section) error {
	if len(sections) == 0 {
		return validationError("line.replace_sections", "line %q has no sections", l.Name)
	}
	topology, err := NewTopology(sections)
	if err != nil {
		return err
	}
	l.topology = topology
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Sections returns the sections in path order
func (l *Line) Sections() []Section {
	return l.topo().Sections()
}

// StationIDs returns the ordered station ids
func (l *Line) StationIDs() ([]int64, error) {
	return l.topo().OrderedStations()
}

// IsEmpty reports whether the line has lost its last section
func (l *Line) IsEmpty() bool {
	return l.topo().Len() == 0
}

// Topology exposes the line's engine for read-only queries
func (l *Line) Topology() *Topology {
	return l.topo()
}

// Stations returns the ordered stations, hydrated through the registry.
// A station missing from the registry is a consistency fault and its
// not-found error is returned unchanged.
func (l *Line) Stations(ctx context.Context, registry StationRegistry) ([]Station, error) {
	ids, err := l.StationIDs()
	if err != nil {
		return nil, err
	}

	stations := make([]Station, 0, len(ids))
	for _, id := range ids {
		station, err := registry.FindStationByID(ctx, id)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *station)
	}
	return stations, nil
}

// Clone returns a deep copy, used to keep repository state isolated
func (l *Line) Clone() *Line {
	c := *l
	c.topology = l.topo().Clone()
	return &c
}

func (l *Line) topo() *Topology {
	if l.topology == nil {
		l.topology = &Topology{
			byUp:   make(map[int64]Section),
			byDown: make(map[int64]Section),
		}
	}
	return l.topology
}

func normalizeLineInfo(op, name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if name == "" {
		return "", "", validationError(op, "line name required")
	}
	if color == "" {
		return "", "", validationError(op, "line color required")
	}
	return name, color, nil
}
