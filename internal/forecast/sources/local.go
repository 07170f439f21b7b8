package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// LocalFileSource reads a previously downloaded forecast document from disk.
type LocalFileSource struct {
	path string
}

func NewLocalFileSource(path string) *LocalFileSource {
	return &LocalFileSource{path: strings.TrimSpace(path)}
}

func (s *LocalFileSource) Name() string {
	return "local"
}

// Path returns the file the source reads.
func (s *LocalFileSource) Path() string {
	return s.path
}

func (s *LocalFileSource) Fetch(ctx context.Context) (forecast.Payload, error) {
	if s.path == "" {
		return forecast.Payload{}, fmt.Errorf("%w: no path configured", ErrLocalUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return forecast.Payload{}, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return forecast.Payload{}, fmt.Errorf("%w: %s", ErrLocalUnavailable, s.path)
	}
	if err != nil {
		return forecast.Payload{}, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	body, err := readJSON(f)
	if err != nil {
		return forecast.Payload{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	return forecast.Payload{Origin: "file://" + s.path, Body: body}, nil
}
