package domain

import (
	"encoding/json"
	"fmt"
)

// Section is a directed, weighted edge from an up station to a down
// station. It is a value: splitting or merging produces new sections.
type Section struct {
	up       int64
	down     int64
	distance int
}

// NewSection creates a section, rejecting self-loops and non-positive distances
func NewSection(upStationID, downStationID int64, distance int) (Section, error) {
	if upStationID == downStationID {
		return Section{}, validationError("section.new", "endpoints must differ (station %d)", upStationID)
	}
	if distance <= 0 {
		return Section{}, validationError("section.new", "distance must be positive, got %d", distance)
	}
	return Section{up: upStationID, down: downStationID, distance: distance}, nil
}

// MustSection is NewSection for literals known to be valid
func MustSection(upStationID, downStationID int64, distance int) Section {
	s, err := NewSection(upStationID, downStationID, distance)
	if err != nil {
		panic(err)
	}
	return s
}

// UpStationID returns the upstream endpoint
func (s Section) UpStationID() int64 { return s.up }

// DownStationID returns the downstream endpoint
func (s Section) DownStationID() int64 { return s.down }

// Distance returns the section length
func (s Section) Distance() int { return s.distance }

// IsZero reports whether s is the zero value (never a valid section)
func (s Section) IsZero() bool {
	return s == Section{}
}

// Connects reports whether s runs from up to down
func (s Section) Connects(up, down int64) bool {
	return s.up == up && s.down == down
}

func (s Section) String() string {
	return fmt.Sprintf("%d->%d:%d", s.up, s.down, s.distance)
}

type sectionJSON struct {
	UpStationID   int64 `json:"upStationId"`
	DownStationID int64 `json:"downStationId"`
	Distance      int   `json:"distance"`
}

// MarshalJSON implements json.Marshaler
func (s Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(sectionJSON{
		UpStationID:   s.up,
		DownStationID: s.down,
		Distance:      s.distance,
	})
}

// UnmarshalJSON implements json.Unmarshaler and validates like NewSection
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewSection(raw.UpStationID, raw.DownStationID, raw.Distance)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
