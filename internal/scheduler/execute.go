package scheduler

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// execute runs a node's action on a worker goroutine. A panicking action is
// reported as a failure.
func (r *run) execute(ctx context.Context, n *node.TaskNode) (err error) {
	ctx, span := r.opts.Tracer.Start(ctx, "task "+n.ID,
		trace.WithAttributes(
			attribute.String("task.id", n.ID),
			attribute.String("task.kind", n.Spec.Action.Kind),
		))
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in task action: %v", rec)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if n.Action == nil {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Worker picked up node for execution.", "task", n.ID)
	return n.Action(ctx, toolchain.Invocation{
		Task:   n.ID,
		Dir:    n.Spec.Dir,
		Stdout: r.opts.Stdout,
		Stderr: r.opts.Stderr,
	})
}
