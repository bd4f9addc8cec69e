package http_transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func resolveAction(t *testing.T, kind string, args map[string]cty.Value) (toolchain.Func, error) {
	t.Helper()
	tc := toolchain.New(&Module{})
	return tc.Resolve(task.Action{Kind: kind, Args: cty.ObjectVal(args)})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "payload")
	}))
	defer srv.Close()
	dir := t.TempDir()

	fn, err := resolveAction(t, "download", map[string]cty.Value{
		"url":  cty.StringVal(srv.URL + "/file"),
		"dest": cty.StringVal("out/file.txt"),
	})
	require.NoError(t, err)
	require.NoError(t, fn(context.Background(), toolchain.Invocation{Task: "app:fetch", Dir: dir}))

	data, err := os.ReadFile(filepath.Join(dir, "out/file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	fn, err = resolveAction(t, "download", map[string]cty.Value{
		"url":  cty.StringVal(srv.URL + "/missing"),
		"dest": cty.StringVal("missing.txt"),
	})
	require.NoError(t, err)
	err = fn(context.Background(), toolchain.Invocation{Task: "app:fetch", Dir: dir})
	assert.ErrorContains(t, err, "404")
	assert.NoFileExists(t, filepath.Join(dir, "missing.txt"))
}

func TestUpload(t *testing.T) {
	var gotMethod, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotMethod, gotType, gotBody = r.Method, r.Header.Get("Content-Type"), string(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.json"), []byte(`{"ok":true}`), 0o644))

	fn, err := resolveAction(t, "upload", map[string]cty.Value{
		"source": cty.StringVal("app.json"),
		"url":    cty.StringVal(srv.URL + "/bucket/app.json"),
	})
	require.NoError(t, err)
	require.NoError(t, fn(context.Background(), toolchain.Invocation{Task: "app:publish", Dir: dir}))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"ok":true}`, gotBody)
}

func TestFactoryErrors(t *testing.T) {
	_, err := resolveAction(t, "download", map[string]cty.Value{"url": cty.StringVal("http://x")})
	assert.ErrorContains(t, err, "dest")

	_, err = resolveAction(t, "upload", map[string]cty.Value{
		"source":  cty.StringVal("a"),
		"url":     cty.StringVal("http://x"),
		"timeout": cty.StringVal("soon"),
	})
	assert.ErrorContains(t, err, "invalid timeout")
}
