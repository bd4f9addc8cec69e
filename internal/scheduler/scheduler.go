package scheduler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/specialistvlad/buildgrid/internal/builder"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/uptodate"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/specialistvlad/buildgrid/internal/scheduler"

var errUnschedulable = errors.New("task could not be scheduled")

// Scheduler executes task graphs.
type Scheduler struct {
	opts Options
}

// New creates a Scheduler. Zero-value options fall back to one worker, the
// Never checker, discarded output and the global otel tracer.
func New(opts Options) *Scheduler {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.Checker == nil {
		opts.Checker = uptodate.Never{}
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Scheduler{opts: opts}
}

// result is what a worker reports back to the coordinator.
type result struct {
	n   *node.TaskNode
	err error
}

// run is the coordinator state of one Execute call.
type run struct {
	opts    Options
	graph   *builder.Graph
	order   []*node.TaskNode
	pending int
	// disabled nodes satisfy their dependents.
	disabled map[string]bool
	started  map[string]time.Time
	locks    locks
	results  chan result

	inFlight  int
	stopCause error
	res       *BuildResult
}

// Execute runs every node of g and returns the aggregated result. Task
// failures are reported in the result, not as an error.
func (s *Scheduler) Execute(ctx context.Context, g *builder.Graph) (*BuildResult, error) {
	if g == nil {
		return nil, errors.New("scheduler: nil graph")
	}
	logger := ctxlog.FromContext(ctx)
	begin := time.Now()

	r := &run{
		opts:     s.opts,
		graph:    g,
		disabled: make(map[string]bool),
		started:  make(map[string]time.Time),
		locks:    make(locks),
		results:  make(chan result, g.Len()),
		res:      &BuildResult{},
	}
	for _, id := range g.Order() {
		n, _ := g.Node(id)
		n.SetState(node.Pending)
		n.Err = nil
		r.order = append(r.order, n)
	}
	r.pending = len(r.order)

	var eg errgroup.Group
	eg.SetLimit(s.opts.MaxWorkers)
	// Actions are never interrupted: cancellation only stops new dispatch.
	actionCtx := context.WithoutCancel(ctx)
	done := ctx.Done()

	logger.Debug("Scheduler starting run.", "nodes", len(r.order), "workers", s.opts.MaxWorkers, "fail_fast", s.opts.FailFast)
	for {
		if r.stopCause == nil && ctx.Err() != nil {
			done = nil
			r.stop(ctx, ErrBuildCancelled)
		}
		if r.stopCause == nil {
			r.dispatch(ctx, actionCtx, &eg)
		}
		if r.inFlight == 0 {
			if r.pending > 0 {
				cause := r.stopCause
				if cause == nil {
					logger.Error("Pending tasks left with nothing running.", "pending", r.pending)
					cause = errUnschedulable
				}
				r.skipRemaining(ctx, cause)
			}
			break
		}

		select {
		case res := <-r.results:
			r.complete(ctx, res)
		case <-done:
			done = nil
			r.stop(ctx, ErrBuildCancelled)
		}
	}

	_ = eg.Wait()
	r.res.Duration = time.Since(begin)
	logger.Debug("Scheduler finished run.",
		"succeeded", len(r.res.Succeeded),
		"up_to_date", len(r.res.UpToDate),
		"skipped", len(r.res.Skipped),
		"failed", len(r.res.Failures),
		"cancelled", r.res.Cancelled,
		"duration", r.res.Duration)
	return r.res, nil
}

// dispatch classifies pending nodes until a full pass changes nothing.
func (r *run) dispatch(ctx context.Context, actionCtx context.Context, eg *errgroup.Group) {
	for changed := true; changed && r.stopCause == nil; {
		changed = false
		for _, n := range r.order {
			if r.stopCause != nil {
				return
			}
			if n.GetState() != node.Pending {
				continue
			}
			if dep, doomed := r.failedDependency(n); doomed {
				r.finish(ctx, n, node.Skipped, &DependencyFailedError{Task: n.ID, Dependency: dep})
				changed = true
				continue
			}
			if !r.predecessorsDone(n) {
				continue
			}
			if !n.Enabled() {
				r.disabled[n.ID] = true
				r.finish(ctx, n, node.Skipped, ErrTaskDisabled)
				changed = true
				continue
			}
			if r.inFlight >= r.opts.MaxWorkers {
				continue
			}
			if !r.locks.tryAcquire(n.ID, n.Mutex) {
				continue
			}

			upToDate, err := r.opts.Checker.IsUpToDate(ctx, n)
			switch {
			case err != nil:
				r.locks.release(n.ID, n.Mutex)
				r.fail(ctx, n, &TaskActionError{Task: n.ID, Err: err})
			case upToDate:
				r.locks.release(n.ID, n.Mutex)
				r.finish(ctx, n, node.UpToDate, nil)
			default:
				r.start(ctx, actionCtx, eg, n)
			}
			changed = true
		}
	}
}

// failedDependency returns the first finished hard predecessor that did not
// succeed. Disabled predecessors count as satisfied.
func (r *run) failedDependency(n *node.TaskNode) (string, bool) {
	for _, id := range n.Deps {
		dep, _ := r.graph.Node(id)
		st := dep.GetState()
		if st.Terminal() && !st.Satisfied() && !r.disabled[id] {
			return id, true
		}
	}
	return "", false
}

func (r *run) predecessorsDone(n *node.TaskNode) bool {
	for _, list := range [][]string{n.Deps, n.Ordering} {
		for _, id := range list {
			p, _ := r.graph.Node(id)
			if !p.GetState().Terminal() {
				return false
			}
		}
	}
	return true
}

func (r *run) start(ctx context.Context, actionCtx context.Context, eg *errgroup.Group, n *node.TaskNode) {
	n.SetState(node.Executing)
	r.inFlight++
	r.started[n.ID] = time.Now()
	if r.opts.Observer != nil {
		r.opts.Observer.TaskStarted(n.ID)
	}
	ctxlog.FromContext(ctx).Info("Task started.", "task", n.ID)

	eg.Go(func() error {
		r.results <- result{n: n, err: r.execute(actionCtx, n)}
		return nil
	})
}

func (r *run) complete(ctx context.Context, res result) {
	r.inFlight--
	n := res.n
	r.locks.release(n.ID, n.Mutex)

	if res.err != nil {
		r.fail(ctx, n, &TaskActionError{Task: n.ID, Err: res.err})
		return
	}
	// The task ran to completion, so its outputs are recorded even while a
	// cancelled build drains.
	if err := r.opts.Checker.RecordOutputs(context.WithoutCancel(ctx), n); err != nil {
		r.fail(ctx, n, &TaskActionError{Task: n.ID, Err: err})
		return
	}
	r.finish(ctx, n, node.Succeeded, nil)
}

func (r *run) fail(ctx context.Context, n *node.TaskNode, err error) {
	r.finish(ctx, n, node.Failed, err)
	r.res.Failures = append(r.res.Failures, TaskFailure{Task: n.ID, Err: err})
	if r.opts.FailFast {
		r.stop(ctx, ErrStoppedAfterFailure)
	}
}

func (r *run) stop(ctx context.Context, cause error) {
	if r.stopCause != nil {
		return
	}
	r.stopCause = cause
	ctxlog.FromContext(ctx).Warn("Stopping build, waiting for running tasks.", "reason", cause, "running", r.inFlight)
}

// skipRemaining records every pending node as skipped.
func (r *run) skipRemaining(ctx context.Context, cause error) {
	for _, n := range r.order {
		if n.GetState() != node.Pending {
			continue
		}
		if dep, doomed := r.failedDependency(n); doomed {
			r.finish(ctx, n, node.Skipped, &DependencyFailedError{Task: n.ID, Dependency: dep})
			continue
		}
		r.finish(ctx, n, node.Skipped, cause)
	}
}

func (r *run) finish(ctx context.Context, n *node.TaskNode, state node.State, cause error) {
	n.Err = cause
	n.SetState(state)
	r.pending--

	var elapsed time.Duration
	if t, ok := r.started[n.ID]; ok {
		elapsed = time.Since(t)
	}
	if r.opts.Observer != nil {
		r.opts.Observer.TaskFinished(n.ID, state, elapsed)
	}

	logger := ctxlog.FromContext(ctx)
	switch state {
	case node.Succeeded:
		r.res.Succeeded = append(r.res.Succeeded, n.ID)
		logger.Info("Task succeeded.", "task", n.ID, "duration", elapsed)
	case node.UpToDate:
		r.res.UpToDate = append(r.res.UpToDate, n.ID)
		logger.Info("Task is up to date.", "task", n.ID)
	case node.Skipped:
		r.res.Skipped = append(r.res.Skipped, n.ID)
		if errors.Is(cause, ErrBuildCancelled) {
			r.res.Cancelled = true
		}
		logger.Info("Task skipped.", "task", n.ID, "reason", cause)
	case node.Failed:
		logger.Error("Task failed.", "task", n.ID, "error", cause, "duration", elapsed)
	}
}
