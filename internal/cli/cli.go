package cli

import (
	"context"
	"errors"
	"io"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/spf13/cobra"
)

// Process exit codes. A failed build exits with its failed-task count
// instead, capped at 125.
const (
	ExitConfig = 1
	ExitUsage  = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// Options holds the values of every command-line flag.
type Options struct {
	Files           []string
	Workers         int
	FailFast        bool
	DryRun          bool
	DOT             bool
	Watch           bool
	StateDB         string
	LogLevel        string
	LogFormat       string
	ReportFormat    string
	HealthcheckPort int
}

// Config validates the options and turns them into an app configuration.
func (o *Options) Config(tasks []string) (*app.Config, error) {
	return app.NewConfig(app.Config{
		BuildPaths:      o.Files,
		Tasks:           tasks,
		Workers:         o.Workers,
		FailFast:        o.FailFast,
		DryRun:          o.DryRun,
		DOT:             o.DOT,
		Watch:           o.Watch,
		StateDB:         o.StateDB,
		LogFormat:       o.LogFormat,
		LogLevel:        o.LogLevel,
		ReportFormat:    o.ReportFormat,
		HealthcheckPort: o.HealthcheckPort,
	})
}

// NewRootCommand creates the buildgrid command. Reports and task output go
// to outW; logs and errors go to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "buildgrid [flags] [task...]",
		Short: "BuildGrid - a rule-based, incremental task runner",
		Long: `BuildGrid loads build files, configures a model of projects and tasks
through rules, and runs the requested tasks and their dependencies in
parallel, skipping tasks whose inputs and outputs have not changed.

Build files are build.hcl, *.build.hcl, build.yaml or *.build.yaml.
Without tasks, the declared tasks are listed.

Example:
  buildgrid compile
  buildgrid -f ./services --workers 8 app:test lib:test
  buildgrid --dot assemble | dot -Tsvg > graph.svg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), opts, args, outW, errW)
		},
	}
	cmd.SetOut(outW)
	cmd.SetErr(errW)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	f := cmd.Flags()
	f.StringArrayVarP(&opts.Files, "file", "f", []string{"."}, "build file or directory; repeatable")
	f.IntVarP(&opts.Workers, "workers", "w", 4, "maximum number of tasks running at once")
	f.BoolVar(&opts.FailFast, "fail-fast", false, "stop starting tasks after the first failure")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "print the tasks that would run without running them")
	f.BoolVar(&opts.DOT, "dot", false, "print the task graph in Graphviz DOT format and exit")
	f.BoolVar(&opts.Watch, "watch", false, "rebuild whenever a file below the build paths changes")
	f.StringVar(&opts.StateDB, "state-db", "", "SQLite file for up-to-date checks; empty always runs tasks")
	f.StringVar(&opts.LogLevel, "log-level", "info", "logging level (debug|info|warn|error)")
	f.StringVar(&opts.LogFormat, "log-format", "text", "log output format (text|json)")
	f.StringVar(&opts.ReportFormat, "format", "text", "build report format (text|json)")
	f.IntVar(&opts.HealthcheckPort, "healthcheck-port", 0, "port for the /health and /metrics server; 0 is disabled")

	return cmd
}

func runBuild(ctx context.Context, opts *Options, tasks []string, outW, errW io.Writer) error {
	cfg, err := opts.Config(tasks)
	if err != nil {
		return usageError(err)
	}

	a, err := app.NewApp(outW, errW, cfg)
	if err != nil {
		return &ExitError{Code: ExitConfig, Message: err.Error(), Err: err}
	}
	defer a.Close()

	err = a.Run(ctx, cfg.Tasks)
	if err == nil {
		return nil
	}
	var failed *app.BuildFailedError
	if errors.As(err, &failed) {
		return &ExitError{Code: failed.ExitCode(), Message: err.Error(), Err: err}
	}
	return &ExitError{Code: ExitConfig, Message: err.Error(), Err: err}
}

// Run parses args and runs the build they describe. Every non-nil error it
// returns is an *ExitError.
func Run(ctx context.Context, args []string, outW, errW io.Writer) error {
	cmd := NewRootCommand(outW, errW)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra rejects before RunE is a usage problem.
	return usageError(err)
}
