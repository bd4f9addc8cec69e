package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Discover expands the given paths into build files accepted by one of the
// loaders. Directories are walked recursively; explicitly named files must be
// accepted by a loader.
func Discover(paths []string, loaders ...Loader) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing build path %s: %w", path, err)
		}
		if !info.IsDir() {
			if loaderFor(path, loaders) == nil {
				return nil, fmt.Errorf("unsupported build file %s", path)
			}
			add(path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if loaderFor(p, loaders) != nil {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return files, nil
}

// Load discovers build files under paths and merges what each loader
// produces into one Model.
func Load(ctx context.Context, paths []string, loaders ...Loader) (*Model, []string, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := Discover(paths, loaders...)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered build files.", "count", len(files))

	m := &Model{}
	for _, f := range files {
		part, err := loaderFor(f, loaders).Load(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		m.Merge(part)
	}
	logger.Debug("Build files loaded.", "projects", len(m.Projects), "tasks", m.TaskCount(), "settings", len(m.Settings), "rules", len(m.Rules))
	return m, files, nil
}

func loaderFor(path string, loaders []Loader) Loader {
	for _, l := range loaders {
		if l.Handles(path) {
			return l
		}
	}
	return nil
}
