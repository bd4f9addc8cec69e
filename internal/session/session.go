// Package session defines the per-invocation build session: the one object
// that carries everything a single build needs, so no build state lives in
// package-level variables.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/model"
)

// Options are the execution options of one build.
type Options struct {
	MaxWorkers int
	FailFast   bool
	DryRun     bool
}

// Session is one build invocation. Its registry lives exactly as long as
// the session.
type Session struct {
	ID        uuid.UUID
	Registry  *model.Registry
	Logger    *slog.Logger
	Options   Options
	StartedAt time.Time
}

// New starts a session with a fresh registry. The session logger is the
// context logger tagged with the build id.
func New(ctx context.Context, opts Options) *Session {
	id := uuid.New()
	return &Session{
		ID:        id,
		Registry:  model.NewRegistry(),
		Logger:    ctxlog.FromContext(ctx).With("build_id", id.String()),
		Options:   opts,
		StartedAt: time.Now(),
	}
}

// Context returns ctx carrying the session logger.
func (s *Session) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, s.Logger)
}

// Close discards the session's model.
func (s *Session) Close() error {
	s.Logger.Debug("Closing build session.", "elapsed", time.Since(s.StartedAt))
	return s.Registry.Close()
}
