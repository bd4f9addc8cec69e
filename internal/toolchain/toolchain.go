package toolchain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Invocation is what a task action gets to work with at run time.
type Invocation struct {
	// Task is the id of the running task.
	Task string
	// Dir is the project directory relative paths resolve against.
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Func is a ready-to-run task action.
type Func func(ctx context.Context, inv Invocation) error

// Factory decodes the arguments of one action kind and returns the action.
// It is called during graph construction, so argument errors surface before
// any task runs.
type Factory func(args cty.Value) (Func, error)

// Module is implemented by every package that contributes action kinds.
type Module interface {
	Register(t *Toolchain)
}

// Toolchain is the lookup table of action kinds.
type Toolchain struct {
	factories map[string]Factory
}

// New creates a toolchain and registers the given modules into it.
func New(modules ...Module) *Toolchain {
	t := &Toolchain{factories: make(map[string]Factory)}
	for _, m := range modules {
		m.Register(t)
	}
	return t
}

// Register adds an action kind. Registering the same kind twice is a
// programming error and panics.
func (t *Toolchain) Register(kind string, f Factory) {
	if _, exists := t.factories[kind]; exists {
		panic(fmt.Sprintf("action kind '%s' already registered", kind))
	}
	slog.Debug("Registering action kind.", "kind", kind)
	t.factories[kind] = f
}

// Kinds returns the registered kinds, sorted.
func (t *Toolchain) Kinds() []string {
	kinds := make([]string, 0, len(t.factories))
	for k := range t.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Resolve returns the function for a task action.
func (t *Toolchain) Resolve(a task.Action) (Func, error) {
	f, ok := t.factories[a.Kind]
	if !ok {
		return nil, UnknownKindError{Kind: a.Kind, Known: t.Kinds()}
	}
	fn, err := f(a.Args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments for action '%s': %w", a.Kind, err)
	}
	return fn, nil
}

// UnknownKindError is returned for an action kind no module registered.
type UnknownKindError struct {
	Kind  string
	Known []string
}

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("unknown action kind '%s' (known kinds: %v)", e.Kind, e.Known)
}
