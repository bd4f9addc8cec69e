package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/task"
)

// Builder turns requested task names into a validated task graph.
type Builder struct {
	source Source
	tools  ActionResolver
}

// New creates a Builder.
func New(source Source, tools ActionResolver) *Builder {
	return &Builder{source: source, tools: tools}
}

// Build resolves the requested selectors and constructs the graph of every
// task reachable from them through dependsOn edges.
func (b *Builder) Build(ctx context.Context, requested []string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting task graph construction.", "requested", requested)

	idx := newIndex(b.source.Tasks())
	g := newGraph()

	// First pass: resolve selectors into entry tasks.
	var entries []task.Ref
	seen := make(map[string]bool)
	for _, sel := range requested {
		refs, err := idx.selectTasks(sel)
		if err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			logger.Warn("Task selector matched no tasks.", "selector", sel)
		}
		for _, r := range refs {
			if !seen[r.ID()] {
				seen[r.ID()] = true
				entries = append(entries, r)
				g.Requested = append(g.Requested, r.ID())
			}
		}
	}
	logger.Debug("Build: Selection complete.", "entries", g.Requested)

	// Second pass: walk dependsOn edges, realizing each task exactly once.
	stack := make([]task.Ref, len(entries))
	for i, r := range entries {
		stack[len(entries)-1-i] = r
	}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := g.nodes[ref.ID()]; done {
			continue
		}

		n, err := b.materialize(ctx, ref)
		if err != nil {
			return nil, err
		}
		deps, err := b.resolveRefs(idx, n, n.Spec.DependsOn)
		if err != nil {
			return nil, err
		}
		n.Deps = ids(deps)
		g.add(n)
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, deps[i])
		}
	}
	logger.Debug("Build: Node materialization complete.", "node_count", g.Len())

	// Third pass: hard edges and strict ordering edges, then the cycle check.
	for _, id := range g.ids() {
		n := g.nodes[id]
		for _, dep := range n.Deps {
			if dep == id {
				return nil, &GraphCycleError{Path: []string{id, id}}
			}
			if err := g.strict.AddEdge(dep, id); err != nil {
				return nil, err
			}
		}
		after, err := b.resolveRefs(idx, n, n.Spec.MustRunAfter)
		if err != nil {
			return nil, err
		}
		for _, r := range after {
			if !g.strict.HasNode(r.ID()) {
				continue
			}
			if r.ID() == id {
				return nil, &GraphCycleError{Path: []string{id, id}}
			}
			if err := g.strict.AddEdge(r.ID(), id); err != nil {
				return nil, err
			}
			n.Ordering = appendUnique(n.Ordering, r.ID())
		}
	}
	if err := g.strict.DetectCycles(); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &GraphCycleError{Path: cycle.Path}
		}
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	// Fourth pass: soft ordering edges, dropped when they would close a cycle.
	for _, id := range g.ids() {
		n := g.nodes[id]
		after, err := b.resolveRefs(idx, n, n.Spec.ShouldRunAfter)
		if err != nil {
			return nil, err
		}
		for _, r := range after {
			if r.ID() == id || !g.strict.HasNode(r.ID()) {
				continue
			}
			if g.strict.Reachable(id, r.ID()) {
				logger.Debug("Ignoring shouldRunAfter edge that would create a cycle.", "task", id, "after", r.ID())
				continue
			}
			if err := g.strict.AddEdge(r.ID(), id); err != nil {
				return nil, err
			}
			n.Ordering = appendUnique(n.Ordering, r.ID())
		}
		sort.Strings(n.Ordering)
	}

	logger.Debug("Build: Task graph construction successful.", "node_count", g.Len())
	return g, nil
}

// materialize realizes a task declaration and resolves its action.
func (b *Builder) materialize(ctx context.Context, ref task.Ref) (*node.TaskNode, error) {
	spec, err := b.source.Task(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("configuring task '%s': %w", ref.ID(), err)
	}
	if spec == nil {
		return nil, fmt.Errorf("configuring task '%s': declaration is empty", ref.ID())
	}
	action, err := b.tools.Resolve(spec.Action)
	if err != nil {
		return nil, fmt.Errorf("configuring task '%s': %w", ref.ID(), err)
	}
	return node.New(spec, action), nil
}

// resolveRefs qualifies the task references written in a declaration. Every
// reference must name a declared task.
func (b *Builder) resolveRefs(idx *index, n *node.TaskNode, raw []string) ([]task.Ref, error) {
	var out []task.Ref
	seen := make(map[string]bool)
	for _, s := range raw {
		ref, err := n.Spec.Resolve(s)
		if err != nil {
			return nil, err
		}
		if _, ok := idx.lookup(ref.ID()); !ok {
			return nil, &UnknownTaskError{
				Selector:    s,
				From:        n.ID,
				Suggestions: prefixAll(ref.Project, suggest(ref.Name, idx.byProject[ref.Project])),
			}
		}
		if !seen[ref.ID()] {
			seen[ref.ID()] = true
			out = append(out, ref)
		}
	}
	return out, nil
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
