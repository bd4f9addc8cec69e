// Package watch re-runs a build whenever watched files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// DefaultDebounce coalesces bursts of file events, e.g. editors writing a
// temp file and renaming it.
const DefaultDebounce = 300 * time.Millisecond

// Watcher runs a function once, then again after every settled burst of
// changes under its roots.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	roots    []string
	ignore   IgnoreFunc
}

// IgnoreFunc reports whether a change to path must not trigger a rebuild,
// e.g. because the build itself writes it.
type IgnoreFunc func(path string) bool

// Ignore installs fn as the filter for changed paths. It must be called
// before Run.
func (w *Watcher) Ignore(fn IgnoreFunc) {
	w.ignore = fn
}

func (w *Watcher) ignored(path string) bool {
	return w.ignore != nil && w.ignore(path)
}

// New creates a watcher over the given files and directories. Directories
// are watched recursively, hidden ones excepted; a file is watched through
// its parent directory.
func New(roots []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{watcher: fw, debounce: debounce}
	for _, root := range roots {
		if err := w.add(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", root, err)
	}
	w.roots = append(w.roots, root)
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(root))
	}
	return w.addTree(root)
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (d.Name()[0] == '.' || w.ignored(p)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// Run calls build immediately and after each change until ctx is done.
// Build errors are logged, not returned, so a broken build keeps watching.
func (w *Watcher) Run(ctx context.Context, build func(ctx context.Context) error) error {
	logger := ctxlog.FromContext(ctx)
	defer w.watcher.Close()

	rebuild := func() {
		if err := build(ctx); err != nil {
			logger.Error("Watched build failed.", "error", err)
		}
		logger.Info("Waiting for changes.", "roots", w.roots)
	}
	rebuild()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watcher stopped.")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) || w.ignored(event.Name) {
				continue
			}
			logger.Debug("File change detected.", "event", event.Op.String(), "file", event.Name)
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						logger.Warn("Cannot watch new directory.", "dir", event.Name, "error", err)
					}
				}
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("File watcher error.", "error", err)
		case <-timer.C:
			logger.Info("Changes settled, rebuilding.")
			rebuild()
		}
	}
}

// relevant filters out events that cannot change a build: chmod-only
// events and hidden files.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	return base != "" && base[0] != '.'
}
