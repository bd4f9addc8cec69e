package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/buildgrid/internal/builder"
	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/registrar"
	"github.com/specialistvlad/buildgrid/internal/report"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
	"github.com/specialistvlad/buildgrid/internal/session"
	"github.com/specialistvlad/buildgrid/internal/telemetry"
)

// loadSession discovers and loads the build files and registers their
// declarations into a fresh session. The caller must close the session.
func (a *App) loadSession(ctx context.Context) (*session.Session, context.Context, error) {
	sess := session.New(ctx, session.Options{
		MaxWorkers: a.config.Workers,
		FailFast:   a.config.FailFast,
		DryRun:     a.config.DryRun,
	})
	ctx = sess.Context(ctx)
	logger := ctxlog.FromContext(ctx)

	m, files, err := config.Load(ctx, a.config.BuildPaths, a.loaders...)
	if err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("error loading build files: %w", err)
	}
	logger.Debug("Build files loaded.", "files", files, "projects", len(m.Projects), "tasks", m.TaskCount())

	if err := registrar.Register(ctx, sess.Registry, m); err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("error registering build model: %w", err)
	}
	return sess, ctx, nil
}

// Execute runs one build of the requested tasks. A nil result with a nil
// error means the build produced no execution, as in --dot or --dry-run.
// Task failures are reported in the result, not as an error.
func (a *App) Execute(ctx context.Context, requested []string) (*scheduler.BuildResult, error) {
	ctx = a.Context(ctx)
	sess, ctx, err := a.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	logger := ctxlog.FromContext(ctx)

	g, err := builder.New(builder.ModelSource{Registry: sess.Registry}, a.toolchain).Build(ctx, requested)
	if err != nil {
		return nil, err
	}
	// No declaration may change once execution planning is done.
	sess.Registry.Seal()
	logger.Debug("Task graph built.", "tasks", g.Len(), "order", g.Order())
	a.rememberOutputs(g)

	if a.config.DOT {
		_, err := fmt.Fprint(a.outW, g.DOT())
		return nil, err
	}
	opts := sess.Options
	if opts.DryRun {
		return nil, report.Plan(a.outW, g)
	}

	s := scheduler.New(scheduler.Options{
		MaxWorkers: opts.MaxWorkers,
		FailFast:   opts.FailFast,
		Checker:    a.checker(),
		Stdout:     a.outW,
		Stderr:     a.errW,
		Observer:   a.metrics,
		Tracer:     telemetry.Tracer(),
	})

	logger.Info("🚀 Starting build.", "tasks", g.Len(), "workers", opts.MaxWorkers)
	start := time.Now()
	res, err := s.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordBuild(!res.Successful(), time.Since(start))
	logger.Info("🏁 Build finished.", "failed", len(res.Failures), "cancelled", res.Cancelled, "duration", res.Duration)

	if err := report.Write(a.outW, a.reportFormat(), res); err != nil {
		return res, fmt.Errorf("error writing build report: %w", err)
	}
	return res, nil
}

func (a *App) reportFormat() report.Format {
	f, err := report.ParseFormat(a.config.ReportFormat)
	if err != nil {
		return report.Text
	}
	return f
}

// ListTasks writes every declared task with its description.
func (a *App) ListTasks(ctx context.Context) error {
	ctx = a.Context(ctx)
	sess, ctx, err := a.loadSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	source := builder.ModelSource{Registry: sess.Registry}
	refs := source.Tasks()
	if len(refs) == 0 {
		_, err := fmt.Fprintln(a.outW, "No tasks declared.")
		return err
	}
	fmt.Fprintln(a.outW, "Available tasks:")
	var errs []error
	for _, ref := range refs {
		spec, err := source.Task(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if spec.Description != "" {
			fmt.Fprintf(a.outW, "  %s - %s\n", ref.ID(), spec.Description)
		} else {
			fmt.Fprintf(a.outW, "  %s\n", ref.ID())
		}
	}
	return errors.Join(errs...)
}
