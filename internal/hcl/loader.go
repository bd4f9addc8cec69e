package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Loader is the HCL implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL build-file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Handles accepts `build.hcl` and `*.build.hcl` files.
func (l *Loader) Handles(path string) bool {
	base := filepath.Base(path)
	return base == "build.hcl" || strings.HasSuffix(base, ".build.hcl")
}

// Load parses each file and merges its blocks into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	parser := hclparse.NewParser()
	model := &config.Model{}
	for _, path := range paths {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		part, err := l.translate(ctx, file.Body, filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, err)
		}
		model.Merge(part)
	}

	logger.Debug("HCL loading complete.", "projects", len(model.Projects), "tasks", model.TaskCount(), "settings", len(model.Settings), "rules", len(model.Rules))
	return model, nil
}

// LoadSource translates in-memory HCL source. dir is the directory task
// actions of the declared projects run in.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte, dir string) (*config.Model, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.translate(ctx, file.Body, dir)
}

func (l *Loader) translate(ctx context.Context, body hcl.Body, dir string) (*config.Model, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, diags
	}

	model := &config.Model{}
	for _, p := range root.Projects {
		project, err := l.translateProject(ctx, p, dir)
		if err != nil {
			return nil, err
		}
		model.Merge(&config.Model{Projects: []*config.Project{project}})
	}
	for _, s := range root.Settings {
		setting, err := l.translateSetting(s)
		if err != nil {
			return nil, err
		}
		model.Settings = append(model.Settings, setting)
	}
	for _, r := range root.Rules {
		rule, err := l.translateRule(r)
		if err != nil {
			return nil, err
		}
		model.Rules = append(model.Rules, rule)
	}
	return model, nil
}
