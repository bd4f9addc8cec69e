package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/scheduler"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFiles writes files, keyed by slash-separated relative path, below
// root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	Output    string
	LogOutput string
	Result    *scheduler.BuildResult
	Err       error
	App       *app.App
}

// RunIntegrationTest writes files into a temporary directory and executes
// the requested tasks against it. Nil cfg fields get test defaults.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg app.Config, requested []string, modules ...toolchain.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, cfg, requested, modules...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller
// provided context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, requested []string, modules ...toolchain.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	WriteFiles(t, dir, files)

	if len(cfg.BuildPaths) == 0 {
		cfg.BuildPaths = []string{dir}
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	outBuffer := &SafeBuffer{}
	logBuffer := &SafeBuffer{}
	testApp, err := app.NewApp(outBuffer, logBuffer, appConfig, modules...)
	require.NoError(t, err)
	t.Cleanup(func() { testApp.Close() })

	res, runErr := testApp.Execute(ctx, requested)

	if os.Getenv("BUILDGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		Dir:       dir,
		Output:    outBuffer.String(),
		LogOutput: logBuffer.String(),
		Result:    res,
		Err:       runErr,
		App:       testApp,
	}
}
