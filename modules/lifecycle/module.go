package lifecycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the toolchain.Module interface for this package.
type Module struct{}

// PrintArgs defines the arguments of the 'print' action.
type PrintArgs struct {
	Message *string           `cty:"message"`
	Values  map[string]string `cty:"values"`
}

// NewLifecycle is the factory for the 'lifecycle' action. Lifecycle tasks do
// no work of their own; they only aggregate their dependencies.
func NewLifecycle(raw cty.Value) (toolchain.Func, error) {
	var args struct{}
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return func(ctx context.Context, inv toolchain.Invocation) error {
		ctxlog.FromContext(ctx).Debug("Lifecycle task reached.", "task", inv.Task)
		return nil
	}, nil
}

// NewPrint is the factory for the 'print' action. It writes a message and
// sorted key/value pairs to the task's standard output.
func NewPrint(raw cty.Value) (toolchain.Func, error) {
	var args PrintArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return func(ctx context.Context, inv toolchain.Invocation) error {
		if args.Message != nil {
			if _, err := fmt.Fprintln(inv.Stdout, *args.Message); err != nil {
				return err
			}
		}
		for _, k := range sortedKeys(args.Values) {
			if _, err := fmt.Fprintf(inv.Stdout, "  %s = %q\n", k, args.Values[k]); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register registers the 'lifecycle' and 'print' action kinds.
func (m *Module) Register(t *toolchain.Toolchain) {
	t.Register("lifecycle", NewLifecycle)
	t.Register("print", NewPrint)
}
