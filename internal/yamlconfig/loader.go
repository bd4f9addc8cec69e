// Package yamlconfig provides a YAML implementation of the config.Loader
// interface.
//
//	projects:
//	  - name: app
//	    tasks:
//	      - name: compile
//	        action: exec
//	        args: {command: [go, build, ./...]}
//	        depends_on: [generate]
//	settings:
//	  - path: versions.go
//	    value: "1.24"
//	rules:
//	  - stage: mutate
//	    target: app.tasks.compile
//	    inputs: [versions.go]
//	    set:
//	      description: 'Compile with ${input["versions.go"]}'
//
// String values under `set` are HCL templates, so rules declared in YAML can
// read their inputs the same way HCL rules do.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Projects []projectSpec `yaml:"projects"`
	Settings []settingSpec `yaml:"settings"`
	Rules    []ruleSpec    `yaml:"rules"`
}

type projectSpec struct {
	Name  string     `yaml:"name"`
	Tasks []taskSpec `yaml:"tasks"`
}

type taskSpec struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	Action         string         `yaml:"action"`
	Args           map[string]any `yaml:"args"`
	DependsOn      []string       `yaml:"depends_on"`
	MustRunAfter   []string       `yaml:"must_run_after"`
	ShouldRunAfter []string       `yaml:"should_run_after"`
	Mutex          []string       `yaml:"mutex"`
	Inputs         []string       `yaml:"inputs"`
	Outputs        []string       `yaml:"outputs"`
	Enabled        *bool          `yaml:"enabled"`
}

type settingSpec struct {
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
}

type ruleSpec struct {
	Stage  string         `yaml:"stage"`
	Target string         `yaml:"target"`
	Inputs []string       `yaml:"inputs"`
	Set    map[string]any `yaml:"set"`
}

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML build-file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Handles accepts `build.yaml`, `build.yml` and `*.build.yaml` files.
func (l *Loader) Handles(path string) bool {
	base := filepath.Base(path)
	for _, ext := range []string{".yaml", ".yml"} {
		if base == "build"+ext || strings.HasSuffix(base, ".build"+ext) {
			return true
		}
	}
	return false
}

// Load parses each file and merges its declarations into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	model := &config.Model{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
		}
		part, err := l.LoadSource(ctx, path, data, filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		model.Merge(part)
	}
	logger.Debug("YAML loading complete.", "projects", len(model.Projects), "tasks", model.TaskCount())
	return model, nil
}

// LoadSource translates in-memory YAML source.
func (l *Loader) LoadSource(_ context.Context, filename string, data []byte, dir string) (*config.Model, error) {
	var root fileRoot
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", filename, err)
	}

	rng := hcl.Range{Filename: filename, Start: hcl.InitialPos, End: hcl.InitialPos}
	model := &config.Model{}
	for _, p := range root.Projects {
		project := &config.Project{Name: p.Name, Dir: dir, Range: rng}
		for _, t := range p.Tasks {
			args, err := toCty(t.Args)
			if err != nil {
				return nil, fmt.Errorf("%s: in project '%s', task '%s': invalid args: %w", filename, p.Name, t.Name, err)
			}
			if args.IsNull() {
				args = cty.EmptyObjectVal
			}
			project.Tasks = append(project.Tasks, &config.Task{
				Name:           t.Name,
				Description:    t.Description,
				Action:         t.Action,
				Args:           args,
				DependsOn:      t.DependsOn,
				MustRunAfter:   t.MustRunAfter,
				ShouldRunAfter: t.ShouldRunAfter,
				Mutex:          t.Mutex,
				Inputs:         t.Inputs,
				Outputs:        t.Outputs,
				Enabled:        t.Enabled,
				Dir:            dir,
				Range:          rng,
			})
		}
		model.Merge(&config.Model{Projects: []*config.Project{project}})
	}

	for _, s := range root.Settings {
		val, err := toCty(s.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid value for setting '%s': %w", filename, s.Path, err)
		}
		model.Settings = append(model.Settings, &config.Setting{Path: s.Path, Value: val, Range: rng})
	}

	for _, r := range root.Rules {
		attrs, err := expressions(filename, r.Set)
		if err != nil {
			return nil, fmt.Errorf("%s: in rule '%s' for '%s': %w", filename, r.Stage, r.Target, err)
		}
		model.Rules = append(model.Rules, &config.RuleBlock{
			Stage:      r.Stage,
			Target:     r.Target,
			Inputs:     r.Inputs,
			Attributes: attrs,
			Range:      rng,
		})
	}
	return model, nil
}

// expressions turns rule attributes into HCL expressions. Strings are parsed
// as templates; everything else becomes a static value.
func expressions(filename string, set map[string]any) (map[string]hcl.Expression, error) {
	exprs := make(map[string]hcl.Expression, len(set))
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if s, ok := set[k].(string); ok {
			expr, diags := hclsyntax.ParseTemplate([]byte(s), filename, hcl.InitialPos)
			if diags.HasErrors() {
				return nil, fmt.Errorf("attribute '%s': %w", k, diags)
			}
			exprs[k] = expr
			continue
		}
		val, err := toCty(set[k])
		if err != nil {
			return nil, fmt.Errorf("attribute '%s': %w", k, err)
		}
		exprs[k] = hcl.StaticExpr(val, hcl.Range{Filename: filename})
	}
	return exprs, nil
}
