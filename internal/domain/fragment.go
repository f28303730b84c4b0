package domain

import "strings"

// NetworkFragment is the import/export form of a network. Stations and
// section endpoints are referenced by name so documents stay portable
// between databases.
type NetworkFragment struct {
	Stations []string       `json:"stations" yaml:"stations"`
	Lines    []FragmentLine `json:"lines" yaml:"lines"`
}

// FragmentLine is one line of a fragment. Sections are listed in path order
// on export; on import any order that keeps the path connected is accepted.
type FragmentLine struct {
	Name     string            `json:"name" yaml:"name"`
	Color    string            `json:"color" yaml:"color"`
	Sections []FragmentSection `json:"sections" yaml:"sections"`
}

// FragmentSection is a section with named endpoints
type FragmentSection struct {
	Up       string `json:"up" yaml:"up"`
	Down     string `json:"down" yaml:"down"`
	Distance int    `json:"distance" yaml:"distance"`
}

// NewNetworkFragment creates an empty fragment
func NewNetworkFragment() *NetworkFragment {
	return &NetworkFragment{
		Stations: make([]string, 0),
		Lines:    make([]FragmentLine, 0),
	}
}

// AddStation adds a station name to the fragment
func (f *NetworkFragment) AddStation(name string) {
	f.Stations = append(f.Stations, name)
}

// AddLine adds a line to the fragment
func (f *NetworkFragment) AddLine(line FragmentLine) {
	f.Lines = append(f.Lines, line)
}

// StationNames returns every distinct station name the fragment mentions,
// declared stations first, in first-seen order
func (f *NetworkFragment) StationNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, name := range f.Stations {
		add(name)
	}
	for _, line := range f.Lines {
		for _, s := range line.Sections {
			add(s.Up)
			add(s.Down)
		}
	}
	return names
}
