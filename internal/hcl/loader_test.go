package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const buildHCL = `
project "app" {
  task "compile" {
    description = "Compiles the app"
    action      = "exec"
    args        = { command = ["go", "build", "./..."] }
    depends_on  = ["generate"]
    mutex       = ["gocache"]
    inputs      = ["src"]
    outputs     = ["bin/app"]
  }

  task "generate" {
    enabled = false
  }
}

setting "versions.go" {
  value = upper("go1.24")
}

rule "mutate" "app.tasks.compile" {
  inputs      = ["versions.go"]
  description = "Compile with ${input["versions.go"]}"
}
`

func TestLoader_Handles(t *testing.T) {
	l := NewLoader()
	assert.True(t, l.Handles("build.hcl"))
	assert.True(t, l.Handles("/src/app/release.build.hcl"))
	assert.False(t, l.Handles("main.hcl"))
	assert.False(t, l.Handles("build.yaml"))
}

func TestLoader_LoadSource(t *testing.T) {
	m, err := NewLoader().LoadSource(context.Background(), "build.hcl", []byte(buildHCL), "/src/app")
	require.NoError(t, err)

	require.Len(t, m.Projects, 1)
	p := m.Projects[0]
	assert.Equal(t, "app", p.Name)
	assert.Equal(t, "/src/app", p.Dir)
	require.Len(t, p.Tasks, 2)

	compile := p.Tasks[0]
	assert.Equal(t, "/src/app", compile.Dir)
	assert.Equal(t, "compile", compile.Name)
	assert.Equal(t, "Compiles the app", compile.Description)
	assert.Equal(t, "exec", compile.Action)
	assert.Equal(t, []string{"generate"}, compile.DependsOn)
	assert.Equal(t, []string{"gocache"}, compile.Mutex)
	assert.Equal(t, []string{"src"}, compile.Inputs)
	assert.Equal(t, []string{"bin/app"}, compile.Outputs)
	assert.Nil(t, compile.Enabled)
	assert.Equal(t, cty.StringVal("go"), compile.Args.GetAttr("command").Index(cty.NumberIntVal(0)))

	generate := p.Tasks[1]
	require.NotNil(t, generate.Enabled)
	assert.False(t, *generate.Enabled)
	assert.Equal(t, cty.EmptyObjectVal, generate.Args)

	require.Len(t, m.Settings, 1)
	assert.Equal(t, "versions.go", m.Settings[0].Path)
	assert.Equal(t, cty.StringVal("GO1.24"), m.Settings[0].Value)

	require.Len(t, m.Rules, 1)
	r := m.Rules[0]
	assert.Equal(t, "mutate", r.Stage)
	assert.Equal(t, "app.tasks.compile", r.Target)
	assert.Equal(t, []string{"versions.go"}, r.Inputs)
	require.Contains(t, r.Attributes, "description")
	assert.NotContains(t, r.Attributes, "inputs")

	v, diags := r.Attributes["description"].Value(config.EvalContext(map[string]cty.Value{
		config.InputVariable: config.InputsValue(map[string]cty.Value{"versions.go": cty.StringVal("go1.24")}),
	}))
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, cty.StringVal("Compile with go1.24"), v)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "build.hcl")
	second := filepath.Join(dir, "extra.build.hcl")
	require.NoError(t, os.WriteFile(first, []byte("project \"app\" {\n  task \"a\" {}\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("project \"app\" {\n  task \"b\" {}\n}\n"), 0o644))

	m, err := NewLoader().Load(context.Background(), first, second)
	require.NoError(t, err)
	require.Len(t, m.Projects, 1)
	assert.Equal(t, dir, m.Projects[0].Dir)
	assert.Len(t, m.Projects[0].Tasks, 2)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `project "app" {`, "failed to parse HCL file"},
		{"unknown block", `target "x" {}`, "Unsupported block type"},
		{"args not object", "project \"p\" {\n  task \"t\" { args = \"nope\" }\n}\n", "args must be an object"},
		{"bad setting", `setting "s" { value = nope }`, "invalid value for setting 's'"},
		{"nested block in rule", "rule \"mutate\" \"p.tasks.t\" {\n  extra {}\n}\n", "in rule 'mutate'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().LoadSource(context.Background(), "build.hcl", []byte(tc.src), ".")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
