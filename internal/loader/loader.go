// Package loader picks a reader for a tabular input file by its extension.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

// Loader defines a tabular input format.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt frame.ReadOptions) (*frame.Frame, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Load selects a loader based on filename and reads the file into a frame.
func Load(path string, opt frame.ReadOptions) (*frame.Frame, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			f, err := l.Load(path, opt)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
			}
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
}

func init() {
	// Register default loaders
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported input format")
