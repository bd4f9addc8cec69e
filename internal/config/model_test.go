package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestModel_Merge(t *testing.T) {
	m := &Model{Projects: []*Project{{Name: "app", Dir: "/a", Tasks: []*Task{{Name: "build", Dir: "/a"}}}}}
	m.Merge(&Model{
		Projects: []*Project{
			{Name: "app", Dir: "/b", Tasks: []*Task{{Name: "test", Dir: "/b"}}},
			{Name: "lib", Tasks: []*Task{{Name: "build"}}},
		},
		Settings: []*Setting{{Path: "versions.go"}},
		Rules:    []*RuleBlock{{Stage: "mutate", Target: "app.tasks.build"}},
	})
	m.Merge(nil)

	require.Len(t, m.Projects, 2)
	require.Len(t, m.Project("app").Tasks, 2)
	assert.Equal(t, "/a", m.Project("app").Tasks[0].Dir)
	assert.Equal(t, "/b", m.Project("app").Tasks[1].Dir, "merged tasks keep their own directory")
	assert.NotNil(t, m.Project("lib"))
	assert.Nil(t, m.Project("missing"))
	assert.Equal(t, 3, m.TaskCount())
	assert.Len(t, m.Settings, 1)
	assert.Len(t, m.Rules, 1)
}

// suffixLoader accepts files by suffix and records what it was asked to load.
type suffixLoader struct {
	suffix string
	loaded []string
}

func (l *suffixLoader) Handles(path string) bool { return strings.HasSuffix(path, l.suffix) }

func (l *suffixLoader) Load(_ context.Context, paths ...string) (*Model, error) {
	l.loaded = append(l.loaded, paths...)
	var m Model
	for _, p := range paths {
		m.Projects = append(m.Projects, &Project{Name: filepath.Base(filepath.Dir(p))})
	}
	return &m, nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestDiscoverAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a/build.hcl":       "",
		"b/build.yaml":      "",
		"b/notes.txt":       "",
		".hidden/build.hcl": "",
	})
	hclLoader := &suffixLoader{suffix: ".hcl"}
	yamlLoader := &suffixLoader{suffix: ".yaml"}

	files, err := Discover([]string{root}, hclLoader, yamlLoader)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a/build.hcl"),
		filepath.Join(root, "b/build.yaml"),
	}, files)

	m, loaded, err := Load(context.Background(), []string{root, filepath.Join(root, "a/build.hcl")}, hclLoader, yamlLoader)
	require.NoError(t, err)
	assert.Len(t, loaded, 2, "explicit files already found by the walk are not loaded twice")
	assert.Equal(t, []string{filepath.Join(root, "a/build.hcl")}, hclLoader.loaded)
	require.Len(t, m.Projects, 2)
}

func TestDiscover_Errors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"notes.txt": ""})

	_, err := Discover([]string{filepath.Join(root, "missing")}, &suffixLoader{suffix: ".hcl"})
	assert.ErrorContains(t, err, "error accessing build path")

	_, err = Discover([]string{filepath.Join(root, "notes.txt")}, &suffixLoader{suffix: ".hcl"})
	assert.ErrorContains(t, err, "unsupported build file")
}

func TestEvalContext(t *testing.T) {
	expr, diags := hclsyntax.ParseExpression([]byte(`upper(input["versions.go"])`), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())

	ctx := EvalContext(map[string]cty.Value{
		InputVariable: InputsValue(map[string]cty.Value{"versions.go": cty.StringVal("1.24")}),
	})
	v, diags := expr.Value(ctx)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, cty.StringVal("1.24"), v)

	assert.Equal(t, cty.EmptyObjectVal, InputsValue(nil))
}
