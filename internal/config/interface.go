package config

import "context"

// Loader is the interface for a format-specific build-file loader.
type Loader interface {
	// Handles reports whether the loader understands the given file name.
	Handles(path string) bool
	// Load reads and translates the given files into the format-agnostic
	// model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
