package codec

import (
	"fmt"
	"io"
	"strings"

	"subway/internal/domain"
)

// Importer interface for reading network documents in various formats
type Importer interface {
	Parse(r io.Reader) (*domain.NetworkFragment, error)
	Format() string
}

// Exporter interface for writing network documents in various formats
type Exporter interface {
	Export(fragment *domain.NetworkFragment, w io.Writer) error
	Format() string
	ContentType() string
}

// Codec both reads and writes a format
type Codec interface {
	Importer
	Exporter
}

// Formats lists the supported format identifiers
func Formats() []string {
	return []string{"yaml", "json", "xlsx"}
}

// ForFormat returns the codec for a format identifier. "yml" is accepted
// as an alias for "yaml".
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "xlsx":
		return NewXLSXCodec(), nil
	default:
		return nil, domain.NewValidationError("codec.for_format",
			fmt.Sprintf("unsupported format %q, must be one of %s", format, strings.Join(Formats(), ", ")))
	}
}
