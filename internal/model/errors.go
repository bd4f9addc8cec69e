// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the error types returned while registering rules and
// realizing model nodes. Each type carries enough context to be reported to
// the user as-is and is matched with errors.As.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRegistrySealed is returned when the configuration phase is over and a
// caller attempts to register a rule or realize a node further.
var ErrRegistrySealed = errors.New("model registry is sealed")

// NoCreatorError is returned when a path is requested that no Create rule
// targets.
type NoCreatorError struct {
	Path string
}

func (e NoCreatorError) Error() string {
	return fmt.Sprintf("no create rule registered for model path %q", e.Path)
}

// AmbiguousCreatorError is returned when more than one Create rule targets
// the same path.
type AmbiguousCreatorError struct {
	Path  string
	Rules []string
}

func (e AmbiguousCreatorError) Error() string {
	return fmt.Sprintf("model path %q has %d create rules: %s", e.Path, len(e.Rules), strings.Join(e.Rules, ", "))
}

// ChainLink is one step of a rule input chain: the path being realized and
// the rule that was waiting on the next link.
type ChainLink struct {
	Path string
	Rule string
}

func (l ChainLink) String() string {
	if l.Rule == "" {
		return l.Path
	}
	return fmt.Sprintf("%s [%s]", l.Path, l.Rule)
}

// CyclicRuleError is returned when realizing a path requires that same path
// while it is still being realized. Chain starts and ends with the same path.
type CyclicRuleError struct {
	Chain []ChainLink
}

func (e CyclicRuleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, link := range e.Chain {
		parts[i] = link.String()
	}
	return "cyclic rule inputs: " + strings.Join(parts, " -> ")
}

// RuleError wraps a failure returned by a rule action.
type RuleError struct {
	Path  string
	Rule  string
	Stage Stage
	Err   error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("%s rule %q on %q failed: %v", e.Stage, e.Rule, e.Path, e.Err)
}

func (e RuleError) Unwrap() error { return e.Err }

// ValidationError is returned when a Validate rule rejects a node.
type ValidationError struct {
	Path string
	Rule string
	Err  error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation of %q failed (%s): %v", e.Path, e.Rule, e.Err)
}

func (e ValidationError) Unwrap() error { return e.Err }

// EarlyReadError is returned when a node is read outside rule execution
// before it reached Mutated.
type EarlyReadError struct {
	Path     string
	Required State
}

func (e EarlyReadError) Error() string {
	return fmt.Sprintf("model path %q read at state %s outside rule execution; reads require at least %s", e.Path, e.Required, Mutated)
}

// TypeMismatchError is returned by the typed accessors when a node value is
// not of the requested Go type.
type TypeMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("model path %q holds %s, not %s", e.Path, e.Actual, e.Expected)
}

// LateRuleError is returned when a rule is registered for a stage the target
// node has already completed.
type LateRuleError struct {
	Path  string
	Rule  string
	Stage Stage
	State State
}

func (e LateRuleError) Error() string {
	return fmt.Sprintf("cannot register %s rule %q: model path %q is already %s", e.Stage, e.Rule, e.Path, e.State)
}

// UndeclaredInputError is returned when a rule action reads a path it did
// not declare as an input.
type UndeclaredInputError struct {
	Path string
	Rule string
}

func (e UndeclaredInputError) Error() string {
	return fmt.Sprintf("rule %q read undeclared input %q", e.Rule, e.Path)
}
