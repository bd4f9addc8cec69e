// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Registry: rule storage, node ownership and the
// lifetime of one build invocation's model.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/modelpath"
)

// stageRules holds the rules of one path, per stage, in registration order.
type stageRules [Validate + 1][]*registeredRule

// Registry stores rules and realizes model nodes on demand. It is not safe
// for concurrent use until Seal has been called; after that it is read-only.
type Registry struct {
	rules   map[string]*stageRules
	targets map[string]modelpath.Path
	root    *Node
	nodes   map[string]*Node

	// Realization work stack shared by nested Get calls, and the index of
	// each in-progress path into it.
	active     []*frame
	inProgress map[string]int
	// executing counts rule actions currently on the Go stack.
	executing int

	seq    int
	sealed bool
}

// NewRegistry creates an empty registry holding only the root node.
func NewRegistry() *Registry {
	root := newNode(modelpath.Root, nil)
	root.typ = ContainerType
	root.state = Validated
	return &Registry{
		rules:      make(map[string]*stageRules),
		targets:    make(map[string]modelpath.Path),
		root:       root,
		nodes:      map[string]*Node{"": root},
		inProgress: make(map[string]int),
	}
}

// Register stores a rule. It has no other side effect: nothing is realized
// until a path is requested through Get.
func (r *Registry) Register(rule Rule) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	if rule.Target.IsRoot() {
		return errors.New("rules cannot target the model root")
	}
	if rule.Stage < Create || rule.Stage > Validate {
		return fmt.Errorf("rule %q has invalid stage %d", rule.Descriptor, int(rule.Stage))
	}
	if rule.Action == nil {
		return fmt.Errorf("rule %q on %q has no action", rule.Descriptor, rule.Target)
	}

	r.seq++
	reg := &registeredRule{Rule: rule, seq: r.seq}
	reg.Target = append(modelpath.Path(nil), rule.Target...)
	reg.Inputs = make([]modelpath.Path, len(rule.Inputs))
	for i, in := range rule.Inputs {
		reg.Inputs[i] = append(modelpath.Path(nil), in...)
	}

	key := reg.Target.String()
	if n, ok := r.nodes[key]; ok && n.state >= rule.Stage.Reaches() {
		return LateRuleError{Path: key, Rule: reg.name(), Stage: rule.Stage, State: n.state}
	}

	set, ok := r.rules[key]
	if !ok {
		set = &stageRules{}
		r.rules[key] = set
		r.targets[key] = reg.Target
	}
	set[rule.Stage] = append(set[rule.Stage], reg)
	return nil
}

func (r *Registry) rulesAt(key string, stage Stage) []*registeredRule {
	set, ok := r.rules[key]
	if !ok {
		return nil
	}
	return set[stage]
}

// Find returns every path under prefix (inclusive) that has a Create rule,
// sorted. It does not realize anything.
func (r *Registry) Find(prefix modelpath.Path) []modelpath.Path {
	var out []modelpath.Path
	for key, set := range r.rules {
		if len(set[Create]) == 0 {
			continue
		}
		if p := r.targets[key]; p.HasPrefix(prefix) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// lookup returns an already realized node without realizing anything.
func (r *Registry) lookup(p modelpath.Path) (*Node, bool) {
	n, ok := r.nodes[p.String()]
	return n, ok
}

// Seal ends the configuration phase. Afterwards Register fails and Get only
// serves nodes that already reached the requested state.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Discard removes a realized node and its whole subtree. Values implementing
// io.Closer are closed, children first. Discarding an unrealized path is a
// no-op.
func (r *Registry) Discard(p modelpath.Path) error {
	if p.IsRoot() {
		return errors.New("cannot discard the model root")
	}
	n, ok := r.nodes[p.String()]
	if !ok {
		return nil
	}
	for key := range r.inProgress {
		if r.active[r.inProgress[key]].path.HasPrefix(p) {
			return fmt.Errorf("cannot discard %q while %q is being realized", p, key)
		}
	}

	var errs []error
	n.walk(func(c *Node) {
		delete(r.nodes, c.path.String())
		if closer, ok := c.value.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %q: %w", c.path, err))
			}
		}
	})
	if n.parent != nil {
		delete(n.parent.children, n.path.Name())
	}
	return errors.Join(errs...)
}

// Close discards every node and seals the registry. The registry cannot be
// used for another build afterwards.
func (r *Registry) Close() error {
	r.sealed = true
	var errs []error
	for _, c := range r.root.Children() {
		if err := r.Discard(c.path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Value realizes p to Mutated and returns its value as T.
func Value[T any](ctx context.Context, r *Registry, p modelpath.Path) (T, error) {
	return ValueAt[T](ctx, r, p, Mutated)
}

// ValueAt realizes p to the given state and returns its value as T.
func ValueAt[T any](ctx context.Context, r *Registry, p modelpath.Path, state State) (T, error) {
	n, err := r.Get(ctx, p, state)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](p.String(), n.value)
}
