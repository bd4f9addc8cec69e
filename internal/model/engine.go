// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements the rule engine: on-demand realization of model nodes
// driven by an explicit work stack of frames.
package model

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/modelpath"
)

// frame is one pending realization on the work stack.
type frame struct {
	path   modelpath.Path
	key    string
	target State
	// waiting is the rule whose inputs this frame is resolving.
	waiting *registeredRule
}

func newFrame(p modelpath.Path, target State) *frame {
	return &frame{path: p, key: p.String(), target: target}
}

// Get returns the node at p realized to at least the required state.
// Realized nodes are cached; asking again for a reached state is a no-op.
func (r *Registry) Get(ctx context.Context, p modelpath.Path, required State) (*Node, error) {
	if p.IsRoot() {
		return r.root, nil
	}
	if required < Created {
		required = Created
	}
	if required > Validated {
		required = Validated
	}
	key := p.String()
	if required < Mutated && r.executing == 0 {
		return nil, EarlyReadError{Path: key, Required: required}
	}
	if n, ok := r.nodes[key]; ok && n.state >= required {
		return n, nil
	}
	if r.sealed {
		return nil, fmt.Errorf("realize %q to %s: %w", key, required, ErrRegistrySealed)
	}
	return r.realize(ctx, newFrame(p, required))
}

// realize drives the work stack until the given frame is complete. Nested
// calls (a rule action calling Get) share the stack above their own base.
func (r *Registry) realize(ctx context.Context, start *frame) (*Node, error) {
	logger := ctxlog.FromContext(ctx)
	base := len(r.active)
	if err := r.push(start); err != nil {
		return nil, err
	}

	for len(r.active) > base {
		if err := ctx.Err(); err != nil {
			r.unwind(base)
			return nil, err
		}
		top := r.active[len(r.active)-1]
		next, err := r.step(ctx, top)
		if err != nil {
			r.unwind(base)
			return nil, err
		}
		if next != nil {
			logger.Debug("Realizing model dependency.", "path", top.key, "needs", next.key, "state", next.target)
			if err := r.push(next); err != nil {
				r.unwind(base)
				return nil, err
			}
			continue
		}
		r.pop()
	}
	return r.nodes[start.key], nil
}

func (r *Registry) push(f *frame) error {
	if idx, ok := r.inProgress[f.key]; ok {
		chain := make([]ChainLink, 0, len(r.active)-idx+1)
		for _, af := range r.active[idx:] {
			link := ChainLink{Path: af.key}
			if af.waiting != nil {
				link.Rule = af.waiting.name()
			}
			chain = append(chain, link)
		}
		chain = append(chain, ChainLink{Path: f.key})
		return CyclicRuleError{Chain: chain}
	}
	r.inProgress[f.key] = len(r.active)
	r.active = append(r.active, f)
	return nil
}

func (r *Registry) pop() {
	top := r.active[len(r.active)-1]
	delete(r.inProgress, top.key)
	r.active = r.active[:len(r.active)-1]
}

func (r *Registry) unwind(base int) {
	for len(r.active) > base {
		r.pop()
	}
}

// step advances the frame's node as far as possible. It returns a frame to
// push when a rule input or the parent must be realized first, or nil once
// the frame reached its target state.
func (r *Registry) step(ctx context.Context, f *frame) (*frame, error) {
	logger := ctxlog.FromContext(ctx)
	for {
		n, ok := r.nodes[f.key]
		if ok && n.state >= f.target {
			return nil, nil
		}
		if !ok {
			next, err := r.create(ctx, f)
			if next != nil || err != nil {
				return next, err
			}
			continue
		}

		stage := nextStage(n.state)
		for rules := r.rulesAt(f.key, stage); n.cursor < len(rules); rules = r.rulesAt(f.key, stage) {
			rule := rules[n.cursor]
			if next := r.pendingInput(rule); next != nil {
				f.waiting = rule
				return next, nil
			}
			if err := r.apply(ctx, n, rule); err != nil {
				return nil, err
			}
			n.cursor++
		}
		f.waiting = nil
		n.cursor = 0
		n.state = stage.Reaches()
		logger.Debug("Model node advanced.", "path", f.key, "state", n.state)
	}
}

// create builds the node for f once its parent and creator inputs exist. A
// path without a creator is a container when some rule targets a path below
// it, whether it is requested directly or realized as an ancestor.
func (r *Registry) create(ctx context.Context, f *frame) (*frame, error) {
	creators := r.rulesAt(f.key, Create)
	if len(creators) == 0 && !r.hasTargetsBelow(f.path) {
		return nil, NoCreatorError{Path: f.key}
	}

	parentPath := f.path.Parent()
	parent, ok := r.nodes[parentPath.String()]
	if !ok || parent.state < Created {
		return newFrame(parentPath, Created), nil
	}

	switch {
	case len(creators) > 1:
		names := make([]string, len(creators))
		for i, c := range creators {
			names[i] = c.name()
		}
		return nil, AmbiguousCreatorError{Path: f.key, Rules: names}
	case len(creators) == 0:
		n := newNode(f.path, parent)
		n.typ = ContainerType
		n.state = Created
		r.nodes[f.key] = n
		ctxlog.FromContext(ctx).Debug("Created container node.", "path", f.key)
		return nil, nil
	}

	rule := creators[0]
	if next := r.pendingInput(rule); next != nil {
		f.waiting = rule
		return next, nil
	}
	n := newNode(f.path, parent)
	n.typ = rule.Type
	r.nodes[f.key] = n
	if err := r.apply(ctx, n, rule); err != nil {
		delete(r.nodes, f.key)
		delete(parent.children, f.path.Name())
		return nil, err
	}
	f.waiting = nil
	n.state = Created
	ctxlog.FromContext(ctx).Debug("Model node advanced.", "path", f.key, "state", n.state)
	return nil, nil
}

// pendingInput returns a frame for the first input of rule that has not
// reached Mutated yet.
func (r *Registry) pendingInput(rule *registeredRule) *frame {
	for _, in := range rule.Inputs {
		if n, ok := r.nodes[in.String()]; !ok || n.state < Mutated {
			return newFrame(in, Mutated)
		}
	}
	return nil
}

func (r *Registry) apply(ctx context.Context, n *Node, rule *registeredRule) error {
	inputs := make(map[string]*Node, len(rule.Inputs))
	for _, in := range rule.Inputs {
		inputs[in.String()] = r.nodes[in.String()]
	}
	rc := &RuleContext{ctx: ctx, rule: rule, node: n, inputs: inputs}

	err := func() error {
		r.executing++
		defer func() { r.executing-- }()
		return rule.Action(rc)
	}()
	if err == nil {
		return nil
	}
	if rule.Stage == Validate {
		return ValidationError{Path: n.path.String(), Rule: rule.name(), Err: err}
	}
	return RuleError{Path: n.path.String(), Rule: rule.name(), Stage: rule.Stage, Err: err}
}

// hasTargetsBelow reports whether any rule targets a strict descendant of p.
func (r *Registry) hasTargetsBelow(p modelpath.Path) bool {
	for _, t := range r.targets {
		if len(t) > len(p) && t.HasPrefix(p) {
			return true
		}
	}
	return false
}
