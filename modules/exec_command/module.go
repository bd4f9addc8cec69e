package exec_command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the toolchain.Module interface for this package.
type Module struct{}

// Args defines the arguments of the 'exec' action.
type Args struct {
	Command    []string          `cty:"command"`
	Dir        *string           `cty:"dir"`
	Env        map[string]string `cty:"env"`
	InheritEnv *bool             `cty:"inherit_env"`
}

// NewExec is the factory for the 'exec' action. It runs an external command
// with the project directory as the default working directory.
func NewExec(raw cty.Value) (toolchain.Func, error) {
	var args Args
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Command) == 0 || args.Command[0] == "" {
		return nil, errors.New("missing required argument \"command\"")
	}

	return func(ctx context.Context, inv toolchain.Invocation) error {
		logger := ctxlog.FromContext(ctx)

		cmd := exec.CommandContext(ctx, args.Command[0], args.Command[1:]...)
		cmd.Dir = inv.Dir
		if args.Dir != nil {
			cmd.Dir = resolve(inv.Dir, *args.Dir)
		}
		cmd.Env = environment(args)
		cmd.Stdout = inv.Stdout
		cmd.Stderr = inv.Stderr

		logger.Debug("Running command.", "task", inv.Task, "command", args.Command, "dir", cmd.Dir)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("command %q: %w", args.Command[0], err)
		}
		return nil
	}, nil
}

// environment builds the command environment: the process environment unless
// inherit_env is false, overlaid with env in a stable order.
func environment(args Args) []string {
	var env []string
	if args.InheritEnv == nil || *args.InheritEnv {
		env = os.Environ()
	}
	keys := make([]string, 0, len(args.Env))
	for k := range args.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+args.Env[k])
	}
	return env
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Register registers the 'exec' action kind.
func (m *Module) Register(t *toolchain.Toolchain) {
	t.Register("exec", NewExec)
}
