// Package node defines the executable vertex of a task graph.
package node

import (
	"sync/atomic"

	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
)

// TaskNode is a single vertex in the execution graph: one task, created once
// per graph build.
type TaskNode struct {
	// ID is the unique "project:name" identifier.
	ID   string
	Spec *task.Spec
	// Action is the resolved toolchain function.
	Action toolchain.Func
	// Deps are hard predecessors: they must succeed (or be up to date)
	// before this node may run.
	Deps []string
	// Ordering are ordering-only predecessors: they must be finished,
	// whatever the outcome, before this node may run.
	Ordering []string
	// Mutex names resources held exclusively while the node executes.
	Mutex []string

	// Err is the failure or skip cause. It is written by the scheduler's
	// coordinator before the terminal state is stored.
	Err error

	state atomic.Int32
}

// New creates a pending node for a task spec.
func New(spec *task.Spec, action toolchain.Func) *TaskNode {
	return &TaskNode{
		ID:     spec.Ref().ID(),
		Spec:   spec,
		Action: action,
		Mutex:  dedupe(spec.Mutex),
	}
}

// Enabled reports whether the task should run at all.
func (n *TaskNode) Enabled() bool {
	return n.Spec == nil || n.Spec.Enabled
}

// SetState atomically sets the node's execution state.
func (n *TaskNode) SetState(s State) {
	n.state.Store(int32(s))
}

// GetState atomically retrieves the node's execution state.
func (n *TaskNode) GetState() State {
	return State(n.state.Load())
}

// State represents the execution state of a node in the graph.
type State int32

const (
	// Pending indicates the node is waiting to be dispatched.
	Pending State = iota
	// Executing indicates the node's action is running.
	Executing
	// Skipped indicates the node never ran: a hard predecessor failed, the
	// task is disabled, or the build stopped first.
	Skipped
	// Failed indicates the node's action or up-to-date check returned an error.
	Failed
	// UpToDate indicates the node's outputs were current, so the action did
	// not run.
	UpToDate
	// Succeeded indicates the node's action completed without error.
	Succeeded
)

var stateNames = [...]string{"pending", "executing", "skipped", "failed", "up-to-date", "succeeded"}

func (s State) String() string {
	if s < Pending || s > Succeeded {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s != Pending && s != Executing
}

// Satisfied reports whether a dependent may run after a predecessor in s.
func (s State) Satisfied() bool {
	return s == UpToDate || s == Succeeded
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
