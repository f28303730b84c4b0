// Package loader imports a network seed document from disk at startup and
// whenever the watcher reports a change.
package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"subway/internal/codec"
	"subway/internal/service"
)

// Importer applies a network document
type Importer interface {
	Import(ctx context.Context, format string, r io.Reader, strategy string) (*service.ImportResult, error)
}

// Seed loads one network document into the service
type Seed struct {
	importer Importer
	path     string
	format   string
	strategy string

	mu sync.Mutex // serializes reloads of the same file
}

// NewSeed creates a seed loader. The document format is taken from the
// file extension.
func NewSeed(importer Importer, path, strategy string) (*Seed, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	return &Seed{
		importer: importer,
		path:     path,
		format:   format,
		strategy: strategy,
	}, nil
}

// Path returns the seed file path
func (s *Seed) Path() string {
	return s.path
}

// Load reads the file and imports it
func (s *Seed) Load(ctx context.Context) (*service.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed: %w", err)
	}
	defer f.Close()

	result, err := s.importer.Import(ctx, s.format, f, s.strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to import seed %s: %w", s.path, err)
	}

	log.Printf("Seed %s loaded: %d stations created, %d lines created, %d updated, %d deleted",
		s.path, result.StationsCreated, result.LinesCreated, result.LinesUpdated, result.LinesDeleted)
	return result, nil
}

// Reload is the watcher callback; failures are logged and the previous
// network stays in place
func (s *Seed) Reload(ctx context.Context) {
	if _, err := s.Load(ctx); err != nil {
		log.Printf("Seed reload failed: %v", err)
	}
}

// FormatForPath maps a file extension to a codec format
func FormatForPath(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("seed %s has no extension", path)
	}
	c, err := codec.ForFormat(ext)
	if err != nil {
		return "", fmt.Errorf("seed %s: %w", path, err)
	}
	return c.Format(), nil
}
