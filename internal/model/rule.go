// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines rules, the unit of configuration logic, and the context
// a rule action runs with.
package model

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/specialistvlad/buildgrid/internal/modelpath"
)

// Action is the body of a rule. It reads its declared inputs and the current
// subject value through the RuleContext, and may replace the subject value
// unless it is a Validate rule.
type Action func(rc *RuleContext) error

// Rule binds an action to a target path at a lifecycle stage.
type Rule struct {
	Stage  Stage
	Target modelpath.Path
	// Inputs are realized to at least Mutated before Action runs.
	Inputs []modelpath.Path
	// Type describes the value a Create rule builds. Ignored on other stages.
	Type string
	// Descriptor names the rule in errors and logs.
	Descriptor string
	Action     Action
}

// registeredRule is the registry's immutable copy of a Rule.
type registeredRule struct {
	Rule
	seq int
}

func (r *registeredRule) name() string {
	if r.Descriptor != "" {
		return r.Descriptor
	}
	return fmt.Sprintf("%s %s #%d", r.Stage, r.Target, r.seq)
}

var errValidateWrite = errors.New("validate rules cannot modify their subject")

// RuleContext is handed to a rule action. It is only valid for the duration
// of that action.
type RuleContext struct {
	ctx    context.Context
	rule   *registeredRule
	node   *Node
	inputs map[string]*Node
}

// Context returns the context of the Get call that triggered this rule.
func (rc *RuleContext) Context() context.Context {
	return rc.ctx
}

// Path returns the rule's target path.
func (rc *RuleContext) Path() modelpath.Path {
	return rc.node.path
}

// Subject returns the current value of the target node. For a Create rule it
// is nil until SetSubject is called.
func (rc *RuleContext) Subject() any {
	return rc.node.value
}

// SetSubject replaces the value of the target node.
func (rc *RuleContext) SetSubject(v any) error {
	if rc.rule.Stage == Validate {
		return errValidateWrite
	}
	rc.node.value = v
	return nil
}

// Input returns the value of a declared input.
func (rc *RuleContext) Input(p modelpath.Path) (any, error) {
	n, ok := rc.inputs[p.String()]
	if !ok {
		return nil, UndeclaredInputError{Path: p.String(), Rule: rc.rule.name()}
	}
	return n.value, nil
}

// InputAs returns a declared input converted to T.
func InputAs[T any](rc *RuleContext, p modelpath.Path) (T, error) {
	var zero T
	v, err := rc.Input(p)
	if err != nil {
		return zero, err
	}
	return cast[T](p.String(), v)
}

// SubjectAs returns the target node value converted to T.
func SubjectAs[T any](rc *RuleContext) (T, error) {
	return cast[T](rc.node.path.String(), rc.node.value)
}

func cast[T any](path string, v any) (T, error) {
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, TypeMismatchError{
			Path:     path,
			Expected: reflect.TypeFor[T]().String(),
			Actual:   fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}
