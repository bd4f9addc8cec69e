package uptodate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTaskNode(dir string) *node.TaskNode {
	spec := task.New("core", "compile")
	spec.Dir = dir
	spec.Inputs = []string{"src"}
	spec.Outputs = []string{"build/out.txt"}
	return node.New(spec, nil)
}

func openStore(t *testing.T, path string) *FileStore {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNever(t *testing.T) {
	var c Checker = Never{}
	ok, err := c.IsUpToDate(context.Background(), newTaskNode(t.TempDir()))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.RecordOutputs(context.Background(), nil))
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	s := openStore(t, dbPath)
	n := newTaskNode(dir)

	upToDate := func() bool {
		t.Helper()
		ok, err := s.IsUpToDate(ctx, n)
		require.NoError(t, err)
		return ok
	}

	writeFile(t, filepath.Join(dir, "src", "main.c"), "int main() {}")
	assert.False(t, upToDate(), "never recorded")

	require.NoError(t, s.RecordOutputs(ctx, n), "missing output is not an error")
	assert.False(t, upToDate(), "output missing")

	writeFile(t, filepath.Join(dir, "build", "out.txt"), "binary")
	require.NoError(t, s.RecordOutputs(ctx, n))
	assert.True(t, upToDate())

	writeFile(t, filepath.Join(dir, "src", "util.c"), "void f() {}")
	assert.False(t, upToDate(), "new input file")
	require.NoError(t, s.RecordOutputs(ctx, n))
	assert.True(t, upToDate())

	writeFile(t, filepath.Join(dir, "build", "out.txt"), "tampered")
	assert.False(t, upToDate(), "output changed")
	require.NoError(t, s.RecordOutputs(ctx, n))

	n.Spec.Action = task.Action{Kind: "exec", Args: cty.ObjectVal(map[string]cty.Value{
		"command": cty.ListVal([]cty.Value{cty.StringVal("cc")}),
	})}
	assert.False(t, upToDate(), "action changed")
	require.NoError(t, s.RecordOutputs(ctx, n))
	assert.True(t, upToDate())

	require.NoError(t, s.Close())
	reopened := openStore(t, dbPath)
	ok, err := reopened.IsUpToDate(ctx, n)
	require.NoError(t, err)
	assert.True(t, ok, "state survives reopening")

	require.NoError(t, reopened.Forget(ctx, n.ID))
	ok, err = reopened.IsUpToDate(ctx, n)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_NoOutputsNeverUpToDate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	n := newTaskNode(t.TempDir())
	n.Spec.Outputs = nil

	require.NoError(t, s.RecordOutputs(ctx, n))
	ok, err := s.IsUpToDate(ctx, n)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_MissingOutputForgetsState(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	n := newTaskNode(dir)
	out := filepath.Join(dir, "build", "out.txt")
	writeFile(t, filepath.Join(dir, "src", "main.c"), "int main() {}")
	writeFile(t, out, "binary")
	require.NoError(t, s.RecordOutputs(ctx, n))

	// --- Act ---
	require.NoError(t, os.Remove(out))
	require.NoError(t, s.RecordOutputs(ctx, n))
	writeFile(t, out, "binary")

	// --- Assert ---
	ok, err := s.IsUpToDate(ctx, n)
	require.NoError(t, err)
	assert.False(t, ok, "state recorded before the output went missing is forgotten")
}

func TestFingerprint_Stable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build", "out.txt"), "x")
	spec := newTaskNode(dir).Spec

	a, err := Fingerprint(spec)
	require.NoError(t, err)
	spec.Inputs = []string{"src", "src"}
	b, err := Fingerprint(spec)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	spec.Inputs = []string{"src"}
	c, err := Fingerprint(spec)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}
