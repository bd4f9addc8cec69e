package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/builder"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
	"github.com/specialistvlad/buildgrid/internal/testutil"
	"github.com/specialistvlad/buildgrid/modules/file_ops"
	"github.com/specialistvlad/buildgrid/modules/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildFile = `
project "app" {
  task "generate" {
    action = "record"
  }

  task "compile" {
    action     = "record"
    depends_on = ["generate"]
  }

  task "test" {
    action     = "record"
    args       = { fail = "tests failed" }
    depends_on = ["compile"]
  }

  task "assemble" {
    action     = "record"
    depends_on = ["test"]
  }
}
`

func TestExecute_RunsDependenciesFirst(t *testing.T) {
	// --- Arrange ---
	rec := &testutil.RecorderModule{}
	files := map[string]string{"build.hcl": buildFile}

	// --- Act ---
	r := testutil.RunIntegrationTest(t, files, app.Config{}, []string{"compile"}, rec, &lifecycle.Module{})

	// --- Assert ---
	require.NoError(t, r.Err)
	require.NotNil(t, r.Result)
	assert.False(t, r.Result.Failed())
	assert.Equal(t, []string{"app:generate", "app:compile"}, rec.Tasks())
	assert.Contains(t, r.Output, "BUILD SUCCESSFUL")
	assert.Contains(t, r.LogOutput, "build_id=")
}

func TestExecute_FailureSkipsDependents(t *testing.T) {
	// --- Arrange ---
	rec := &testutil.RecorderModule{}
	files := map[string]string{"build.hcl": buildFile}

	// --- Act ---
	r := testutil.RunIntegrationTest(t, files, app.Config{}, []string{"assemble"}, rec, &lifecycle.Module{})

	// --- Assert ---
	require.NoError(t, r.Err)
	require.NotNil(t, r.Result)
	require.Len(t, r.Result.Failures, 1)
	assert.Equal(t, "app:test", r.Result.Failures[0].Task)
	assert.Equal(t, []string{"app:assemble"}, r.Result.Skipped)
	assert.Contains(t, r.Output, "BUILD FAILED")
	assert.Contains(t, r.Output, "tests failed")
}

func TestExecute_DOTDoesNotRun(t *testing.T) {
	// --- Arrange ---
	rec := &testutil.RecorderModule{}
	files := map[string]string{"build.hcl": buildFile}

	// --- Act ---
	r := testutil.RunIntegrationTest(t, files, app.Config{DOT: true}, []string{"compile"}, rec, &lifecycle.Module{})

	// --- Assert ---
	require.NoError(t, r.Err)
	assert.Nil(t, r.Result)
	assert.Empty(t, rec.Tasks())
	assert.Contains(t, r.Output, "digraph")
	assert.Contains(t, r.Output, `label="app:generate\n(record)"`)
}

func TestExecute_DryRunPrintsPlan(t *testing.T) {
	// --- Arrange ---
	rec := &testutil.RecorderModule{}
	files := map[string]string{"build.hcl": buildFile}

	// --- Act ---
	r := testutil.RunIntegrationTest(t, files, app.Config{DryRun: true}, []string{"compile"}, rec, &lifecycle.Module{})

	// --- Assert ---
	require.NoError(t, r.Err)
	assert.Nil(t, r.Result)
	assert.Empty(t, rec.Tasks())
	assert.Equal(t, ":app:generate SKIPPED\n:app:compile SKIPPED\n", r.Output)
}

func TestExecute_UnknownTask(t *testing.T) {
	files := map[string]string{"build.hcl": buildFile}

	r := testutil.RunIntegrationTest(t, files, app.Config{}, []string{"deploy"}, &testutil.RecorderModule{}, &lifecycle.Module{})

	require.Error(t, r.Err)
	var unknown *builder.UnknownTaskError
	require.True(t, errors.As(r.Err, &unknown), "got %T: %v", r.Err, r.Err)
	assert.Equal(t, "deploy", unknown.Selector)
}

func TestExecute_LoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "invalid hcl",
			files:   map[string]string{"build.hcl": `project "app" {`},
			wantErr: "error loading build files",
		},
		{
			name: "unknown action kind",
			files: map[string]string{"build.hcl": `
project "app" {
  task "x" {
    action = "nope"
  }
}
`},
			wantErr: "unknown action kind 'nope'",
		},
		{
			name: "failing validate rule",
			files: map[string]string{"build.hcl": `
project "app" {
  task "x" {
    action = "record"
  }
}

rule "validate" "app.tasks.x" {
  condition     = self.description != ""
  error_message = "every task needs a description"
}
`},
			wantErr: "every task needs a description",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := testutil.RunIntegrationTest(t, tc.files, app.Config{}, []string{"x"}, &testutil.RecorderModule{}, &lifecycle.Module{})
			require.Error(t, r.Err)
			assert.Contains(t, r.Err.Error(), tc.wantErr)
		})
	}
}

func TestExecute_MixedBuildFileFormats(t *testing.T) {
	// --- Arrange ---
	rec := &testutil.RecorderModule{}
	files := map[string]string{
		"build.hcl": `
project "app" {
  task "compile" {
    action     = "record"
    depends_on = ["lib:compile"]
  }
}
`,
		"lib/build.yaml": `
projects:
  - name: lib
    tasks:
      - name: compile
        action: record
`,
	}

	// --- Act ---
	r := testutil.RunIntegrationTest(t, files, app.Config{}, []string{"app:compile"}, rec, &lifecycle.Module{})

	// --- Assert ---
	require.NoError(t, r.Err)
	assert.Equal(t, []string{"lib:compile", "app:compile"}, rec.Tasks())
}

func TestExecute_UpToDateAcrossBuilds(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"build.hcl": `
project "app" {
  task "gen" {
    action  = "write"
    args    = { path = "out/gen.txt", content = "hello" }
    outputs = ["out/gen.txt"]
  }
}
`})
	cfg, err := app.NewConfig(app.Config{
		BuildPaths: []string{dir},
		Workers:    2,
		StateDB:    filepath.Join(t.TempDir(), "state.db"),
	})
	require.NoError(t, err)
	out := &testutil.SafeBuffer{}
	a, err := app.NewApp(out, &testutil.SafeBuffer{}, cfg, &file_ops.Module{}, &lifecycle.Module{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	ctx := context.Background()

	// --- Act ---
	first, err := a.Execute(ctx, []string{"gen"})
	require.NoError(t, err)
	second, err := a.Execute(ctx, []string{"gen"})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "out", "gen.txt")))
	third, err := a.Execute(ctx, []string{"gen"})
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, []string{"app:gen"}, first.Succeeded)
	assert.Equal(t, []string{"app:gen"}, second.UpToDate)
	assert.Empty(t, second.Succeeded)
	assert.Equal(t, []string{"app:gen"}, third.Succeeded)
}

func TestRun_BuildFailedError(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"build.hcl": buildFile})
	cfg, err := app.NewConfig(app.Config{BuildPaths: []string{dir}, Workers: 1})
	require.NoError(t, err)
	a, err := app.NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, cfg, &testutil.RecorderModule{}, &lifecycle.Module{})
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background(), []string{"assemble"})

	// --- Assert ---
	var failed *app.BuildFailedError
	require.True(t, errors.As(err, &failed), "got %T: %v", err, err)
	assert.Equal(t, 1, failed.Failed)
	assert.Equal(t, 1, failed.ExitCode())
	assert.ErrorContains(t, failed.Unwrap(), "tests failed")
}

func TestRun_ListsTasksWhenNoneRequested(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"build.hcl": `
project "app" {
  task "compile" {
    action      = "record"
    description = "Compiles the sources."
  }

  task "lint" {
    action = "record"
  }
}
`})
	cfg, err := app.NewConfig(app.Config{BuildPaths: []string{dir}, Workers: 1})
	require.NoError(t, err)
	out := &testutil.SafeBuffer{}
	rec := &testutil.RecorderModule{}
	a, err := app.NewApp(out, &testutil.SafeBuffer{}, cfg, rec, &lifecycle.Module{})
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, rec.Tasks())
	assert.Equal(t, "Available tasks:\n  app:compile - Compiles the sources.\n  app:lint\n", out.String())
}

func TestRun_CancelledBuildFails(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"build.hcl": `
project "app" {
  task "slow" {
    action = "record"
    args   = { sleep = "200ms" }
  }

  task "after" {
    action     = "record"
    depends_on = ["slow"]
  }
}
`})
	cfg, err := app.NewConfig(app.Config{BuildPaths: []string{dir}, Workers: 1})
	require.NoError(t, err)
	out := &testutil.SafeBuffer{}
	rec := &testutil.RecorderModule{}
	a, err := app.NewApp(out, &testutil.SafeBuffer{}, cfg, rec, &lifecycle.Module{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// --- Act ---
	err = a.Run(ctx, []string{"after"})

	// --- Assert ---
	var failed *app.BuildFailedError
	require.True(t, errors.As(err, &failed), "got %T: %v", err, err)
	assert.True(t, failed.Cancelled)
	assert.Equal(t, 0, failed.Failed)
	assert.Equal(t, 1, failed.ExitCode())
	assert.ErrorIs(t, err, scheduler.ErrBuildCancelled)
	assert.Equal(t, []string{"app:slow"}, rec.Tasks())
	assert.Contains(t, out.String(), "BUILD CANCELLED")
}
