package scheduler

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/uptodate"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrBuildCancelled is the skip cause of nodes left undispatched when the
	// build context was cancelled.
	ErrBuildCancelled = errors.New("build cancelled")
	// ErrStoppedAfterFailure is the skip cause of nodes left undispatched
	// when FailFast stopped the build.
	ErrStoppedAfterFailure = errors.New("build stopped after a task failure")
	// ErrTaskDisabled is the skip cause of disabled tasks.
	ErrTaskDisabled = errors.New("task is disabled")
)

// Observer receives task lifecycle events from the coordinator goroutine.
type Observer interface {
	TaskStarted(id string)
	TaskFinished(id string, state node.State, elapsed time.Duration)
}

// Options configures a Scheduler.
type Options struct {
	// MaxWorkers bounds the number of concurrently running actions.
	MaxWorkers int
	// FailFast stops dispatching new tasks after the first failure.
	FailFast bool
	// Checker decides whether a task may be skipped as up to date.
	Checker uptodate.Checker
	// Stdout and Stderr are handed to task actions.
	Stdout io.Writer
	Stderr io.Writer
	// Observer and Tracer are optional.
	Observer Observer
	Tracer   trace.Tracer
}

// TaskFailure is one failed task.
type TaskFailure struct {
	Task string
	Err  error
}

// BuildResult is the outcome of one execution. Task ids in each list are in
// the order the tasks reached that state.
type BuildResult struct {
	Succeeded []string
	UpToDate  []string
	Skipped   []string
	Failures  []TaskFailure
	// Cancelled is set when the build context was cancelled before every
	// task was dispatched.
	Cancelled bool
	Duration  time.Duration
}

// Failed reports whether any task failed.
func (r *BuildResult) Failed() bool {
	return len(r.Failures) > 0
}

// Successful reports whether the build ran to completion without failures.
func (r *BuildResult) Successful() bool {
	return !r.Failed() && !r.Cancelled
}

// Err aggregates every failure and the cancellation, or returns nil for a
// successful build.
func (r *BuildResult) Err() error {
	errs := make([]error, 0, len(r.Failures)+1)
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	if r.Cancelled {
		errs = append(errs, ErrBuildCancelled)
	}
	return errors.Join(errs...)
}

// TaskActionError is a failure of a task's action or of its up-to-date
// bookkeeping.
type TaskActionError struct {
	Task string
	Err  error
}

func (e *TaskActionError) Error() string {
	return fmt.Sprintf("task '%s' failed: %v", e.Task, e.Err)
}

func (e *TaskActionError) Unwrap() error { return e.Err }

// DependencyFailedError is the skip cause of a node whose hard predecessor
// did not succeed.
type DependencyFailedError struct {
	Task       string
	Dependency string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("task '%s' skipped: dependency '%s' did not succeed", e.Task, e.Dependency)
}
