package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"subway/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the HTTP media type
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse reads a network document from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.NetworkFragment, error) {
	fragment := domain.NewNetworkFragment()
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(fragment); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return fragment, nil
}

// Export writes a network document as JSON
func (c *JSONCodec) Export(fragment *domain.NetworkFragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
