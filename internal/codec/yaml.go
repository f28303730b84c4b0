package codec

import (
	"errors"
	"fmt"
	"io"

	"subway/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the HTTP media type
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlFragment is the on-disk layout. Sections use the short
// "up: A, down: B, distance: N" form.
type yamlFragment struct {
	Stations []string   `yaml:"stations,omitempty"`
	Lines    []yamlLine `yaml:"lines"`
}

type yamlLine struct {
	Name     string        `yaml:"name"`
	Color    string        `yaml:"color"`
	Sections []yamlSection `yaml:"sections"`
}

type yamlSection struct {
	Up       string `yaml:"up"`
	Down     string `yaml:"down"`
	Distance int    `yaml:"distance"`
}

// Parse reads a network document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.NetworkFragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&yf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fragment := domain.NewNetworkFragment()
	for _, name := range yf.Stations {
		fragment.AddStation(name)
	}

	for _, yl := range yf.Lines {
		line := domain.FragmentLine{
			Name:     yl.Name,
			Color:    yl.Color,
			Sections: make([]domain.FragmentSection, 0, len(yl.Sections)),
		}
		for _, ys := range yl.Sections {
			line.Sections = append(line.Sections, domain.FragmentSection{
				Up:       ys.Up,
				Down:     ys.Down,
				Distance: ys.Distance,
			})
		}
		fragment.AddLine(line)
	}

	return fragment, nil
}

// Export writes a network document as YAML
func (c *YAMLCodec) Export(fragment *domain.NetworkFragment, w io.Writer) error {
	yf := yamlFragment{
		Stations: fragment.Stations,
		Lines:    make([]yamlLine, 0, len(fragment.Lines)),
	}

	for _, line := range fragment.Lines {
		yl := yamlLine{
			Name:     line.Name,
			Color:    line.Color,
			Sections: make([]yamlSection, 0, len(line.Sections)),
		}
		for _, s := range line.Sections {
			yl.Sections = append(yl.Sections, yamlSection{Up: s.Up, Down: s.Down, Distance: s.Distance})
		}
		yf.Lines = append(yf.Lines, yl)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
