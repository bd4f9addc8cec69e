package builder

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/model"
	"github.com/specialistvlad/buildgrid/internal/modelpath"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
)

// Source supplies task declarations.
type Source interface {
	// Tasks lists every declared task without realizing any of them.
	Tasks() []task.Ref
	// Task realizes one declaration.
	Task(ctx context.Context, ref task.Ref) (*task.Spec, error)
}

// ActionResolver turns a task action into a runnable function.
// *toolchain.Toolchain implements it.
type ActionResolver interface {
	Resolve(a task.Action) (toolchain.Func, error)
}

// ModelSource reads task declarations from a model registry. Tasks live at
// "<project>.tasks.<name>" and are realized to Validated on demand.
type ModelSource struct {
	Registry *model.Registry
}

// Tasks implements Source.
func (s ModelSource) Tasks() []task.Ref {
	var refs []task.Ref
	for _, p := range s.Registry.Find(modelpath.Root) {
		if ref, ok := task.RefFromPath(p); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Task implements Source.
func (s ModelSource) Task(ctx context.Context, ref task.Ref) (*task.Spec, error) {
	return model.ValueAt[*task.Spec](ctx, s.Registry, ref.Path(), model.Validated)
}
