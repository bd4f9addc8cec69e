package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/builder"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/watch"
)

// Run is the main entrypoint. Without requested tasks it lists the declared
// ones. In watch mode it rebuilds on every change below the build paths
// until ctx is cancelled, ignoring changes to the build's own outputs;
// otherwise it builds once and returns a *BuildFailedError when any task
// failed or the build was cancelled.
func (a *App) Run(ctx context.Context, requested []string) error {
	ctx = a.Context(ctx)
	logger := ctxlog.FromContext(ctx)

	if len(requested) == 0 {
		return a.ListTasks(ctx)
	}

	a.healthCheckServer(ctx)
	defer a.closeHealthCheckServer(ctx)

	if !a.config.Watch {
		return a.buildOnce(ctx, requested)
	}

	w, err := watch.New(a.config.BuildPaths, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	w.Ignore(a.watchIgnored)
	logger.Info("👀 Watching for changes.", "paths", a.config.BuildPaths)
	return w.Run(ctx, func(ctx context.Context) error {
		return a.buildOnce(ctx, requested)
	})
}

func (a *App) buildOnce(ctx context.Context, requested []string) error {
	res, err := a.Execute(ctx, requested)
	if err != nil {
		return err
	}
	if res != nil && !res.Successful() {
		return &BuildFailedError{Failed: len(res.Failures), Cancelled: res.Cancelled, Err: res.Err()}
	}
	return nil
}

// rememberOutputs records the declared outputs of g so that watch mode does
// not rebuild when the build writes them.
func (a *App) rememberOutputs(g *builder.Graph) {
	var outputs []string
	for _, n := range g.Nodes() {
		if n.Spec == nil {
			continue
		}
		for _, out := range n.Spec.Outputs {
			if !filepath.IsAbs(out) {
				out = filepath.Join(n.Spec.Dir, out)
			}
			outputs = append(outputs, absPath(out))
		}
	}
	a.mu.Lock()
	a.outputs = outputs
	a.mu.Unlock()
}

// watchIgnored reports whether path is, or lies below, a declared output of
// the last build or belongs to the state database.
func (a *App) watchIgnored(path string) bool {
	path = absPath(path)
	if a.config.StateDB != "" && strings.HasPrefix(path, absPath(a.config.StateDB)) {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, out := range a.outputs {
		if path == out || strings.HasPrefix(path, out+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
