package domain

import "sort"

// Topology maintains the sections of one line as a single simple directed
// path. Sections are indexed by both endpoints so that neighbour lookups
// are O(1). A Topology is not safe for concurrent mutation; callers
// serialize writes per line.
type Topology struct {
	byUp   map[int64]Section
	byDown map[int64]Section
}

// NewTopology loads a persisted section set and verifies its path shape.
// An empty set is valid.
func NewTopology(sections []Section) (*Topology, error) {
	const op = "topology.load"

	t := &Topology{
		byUp:   make(map[int64]Section, len(sections)),
		byDown: make(map[int64]Section, len(sections)),
	}

	for _, s := range sections {
		if s.up == s.down || s.distance <= 0 {
			return nil, invariantError(op, "malformed section %s", s)
		}
		if _, dup := t.byUp[s.up]; dup {
			return nil, invariantError(op, "station %d has two outgoing sections", s.up)
		}
		if _, dup := t.byDown[s.down]; dup {
			return nil, invariantError(op, "station %d has two incoming sections", s.down)
		}
		t.put(s)
	}

	if _, err := t.OrderedStations(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of sections
func (t *Topology) Len() int {
	return len(t.byUp)
}

// Contains reports whether the station is an endpoint of any section
func (t *Topology) Contains(stationID int64) bool {
	if _, ok := t.byUp[stationID]; ok {
		return true
	}
	_, ok := t.byDown[stationID]
	return ok
}

// AddSection inserts s, either extending the path at one of its ends or
// splitting the existing section that shares s's known endpoint. Every
// check runs before the section set is modified.
func (t *Topology) AddSection(s Section) error {
	const op = "topology.add_section"

	if s.up == s.down {
		return validationError(op, "endpoints must differ (station %d)", s.up)
	}
	if s.distance <= 0 {
		return validationError(op, "distance must be positive, got %d", s.distance)
	}

	if t.Len() == 0 {
		t.put(s)
		return nil
	}

	upKnown, downKnown := t.Contains(s.up), t.Contains(s.down)

	switch {
	case !upKnown && !downKnown:
		return notFoundError(op, "at least one endpoint must already belong to the line (stations %d, %d)", s.up, s.down)

	case upKnown && downKnown:
		if existing, ok := t.byUp[s.up]; ok && existing.down == s.down {
			return validationError(op, "section already connects these stations (%d -> %d)", s.up, s.down)
		}
		return validationError(op, "stations %d and %d already belong to the line", s.up, s.down)

	case upKnown:
		existing, ok := t.byUp[s.up]
		if !ok {
			// s.up is the sink: extend at the back
			t.put(s)
			return nil
		}
		if s.distance >= existing.distance {
			return validationError(op, "distance exceeds section length (%d >= %d)", s.distance, existing.distance)
		}
		t.remove(existing)
		t.put(Section{up: existing.up, down: s.down, distance: s.distance})
		t.put(Section{up: s.down, down: existing.down, distance: existing.distance - s.distance})
		return nil

	default:
		existing, ok := t.byDown[s.down]
		if !ok {
			// s.down is the source: extend at the front
			t.put(s)
			return nil
		}
		if s.distance >= existing.distance {
			return validationError(op, "distance exceeds section length (%d >= %d)", s.distance, existing.distance)
		}
		t.remove(existing)
		t.put(Section{up: existing.up, down: s.up, distance: existing.distance - s.distance})
		t.put(Section{up: s.up, down: existing.down, distance: s.distance})
		return nil
	}
}

// RemoveStation takes a station off the path. Terminal stations drop their
// single section; interior stations have their two sections merged into
// one whose distance is the sum of both.
func (t *Topology) RemoveStation(stationID int64) error {
	const op = "topology.remove_station"

	in, hasIn := t.byDown[stationID]
	out, hasOut := t.byUp[stationID]

	switch {
	case !hasIn && !hasOut:
		return notFoundError(op, "station %d is not on the line", stationID)
	case hasIn && hasOut:
		t.remove(in)
		t.remove(out)
		t.put(Section{up: in.up, down: out.down, distance: in.distance + out.distance})
	case hasIn:
		t.remove(in)
	default:
		t.remove(out)
	}
	return nil
}

// OrderedStations walks the path from its source to its sink. The walk is
// bounded by the number of distinct stations so corrupt input cannot loop.
func (t *Topology) OrderedStations() ([]int64, error) {
	const op = "topology.ordered_stations"

	if t.Len() == 0 {
		return []int64{}, nil
	}

	var sources []int64
	for up := range t.byUp {
		if _, ok := t.byDown[up]; !ok {
			sources = append(sources, up)
		}
	}
	if len(sources) != 1 {
		return nil, invariantError(op, "expected exactly one source station, found %d", len(sources))
	}

	total := t.stationCount()
	ordered := make([]int64, 0, total)
	visited := make(map[int64]bool, total)

	for current := sources[0]; ; {
		if visited[current] || len(ordered) == total {
			return nil, invariantError(op, "cycle detected at station %d", current)
		}
		visited[current] = true
		ordered = append(ordered, current)

		next, ok := t.byUp[current]
		if !ok {
			break
		}
		current = next.down
	}

	if len(ordered) != total {
		return nil, invariantError(op, "path covers %d of %d stations", len(ordered), total)
	}
	return ordered, nil
}

// Sections returns the sections in path order, source first. A set that
// fails the path check falls back to ordering by up station id.
func (t *Topology) Sections() []Section {
	sections := make([]Section, 0, t.Len())

	ordered, err := t.OrderedStations()
	if err != nil {
		for _, s := range t.byUp {
			sections = append(sections, s)
		}
		sort.Slice(sections, func(i, j int) bool {
			return sections[i].up < sections[j].up
		})
		return sections
	}

	for _, id := range ordered {
		if s, ok := t.byUp[id]; ok {
			sections = append(sections, s)
		}
	}
	return sections
}

// Source returns the first station of the path
func (t *Topology) Source() (int64, bool) {
	ordered, err := t.OrderedStations()
	if err != nil || len(ordered) == 0 {
		return 0, false
	}
	return ordered[0], true
}

// Sink returns the last station of the path
func (t *Topology) Sink() (int64, bool) {
	ordered, err := t.OrderedStations()
	if err != nil || len(ordered) == 0 {
		return 0, false
	}
	return ordered[len(ordered)-1], true
}

// TotalDistance sums every section's distance
func (t *Topology) TotalDistance() int {
	total := 0
	for _, s := range t.byUp {
		total += s.distance
	}
	return total
}

// Clone returns an independent copy
func (t *Topology) Clone() *Topology {
	c := &Topology{
		byUp:   make(map[int64]Section, len(t.byUp)),
		byDown: make(map[int64]Section, len(t.byDown)),
	}
	for _, s := range t.byUp {
		c.put(s)
	}
	return c
}

func (t *Topology) put(s Section) {
	t.byUp[s.up] = s
	t.byDown[s.down] = s
}

func (t *Topology) remove(s Section) {
	delete(t.byUp, s.up)
	delete(t.byDown, s.down)
}

func (t *Topology) stationCount() int {
	seen := make(map[int64]struct{}, len(t.byUp)+1)
	for _, s := range t.byUp {
		seen[s.up] = struct{}{}
		seen[s.down] = struct{}{}
	}
	return len(seen)
}
