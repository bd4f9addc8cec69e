// This file translates decoded HCL blocks into the format-agnostic model.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

func (l *Loader) translateProject(ctx context.Context, p *projectBlock, dir string) (*config.Project, error) {
	project := &config.Project{Name: p.Name, Dir: dir, Range: p.DeclRange}
	evalCtx := config.EvalContext(map[string]cty.Value{
		"project": cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal(p.Name),
			"dir":  cty.StringVal(dir),
		}),
	})

	for _, t := range p.Tasks {
		task, err := l.translateTask(ctx, t, dir, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("in project '%s', task '%s': %w", p.Name, t.Name, err)
		}
		project.Tasks = append(project.Tasks, task)
	}
	return project, nil
}

func (l *Loader) translateTask(ctx context.Context, t *taskBlock, dir string, evalCtx *hcl.EvalContext) (*config.Task, error) {
	task := &config.Task{
		Name:           t.Name,
		Description:    deref(t.Description),
		Action:         deref(t.Action),
		Args:           cty.EmptyObjectVal,
		DependsOn:      t.DependsOn,
		MustRunAfter:   t.MustRunAfter,
		ShouldRunAfter: t.ShouldRunAfter,
		Mutex:          t.Mutex,
		Inputs:         t.Inputs,
		Outputs:        t.Outputs,
		Enabled:        t.Enabled,
		Dir:            dir,
		Range:          t.DeclRange,
	}

	if isExprDefined(ctx, t.Args, "args") {
		val, diags := t.Args.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid args: %w", diags)
		}
		if !val.IsNull() && !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return nil, fmt.Errorf("args must be an object, got %s", val.Type().FriendlyName())
		}
		task.Args = val
	}
	return task, nil
}

func (l *Loader) translateSetting(s *settingBlock) (*config.Setting, error) {
	val, diags := s.Value.Value(config.EvalContext(nil))
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid value for setting '%s': %w", s.Path, diags)
	}
	return &config.Setting{Path: s.Path, Value: val, Range: s.DeclRange}, nil
}

func (l *Loader) translateRule(r *ruleBlock) (*config.RuleBlock, error) {
	attrs, diags := r.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("in rule '%s' for '%s': %w", r.Stage, r.Target, diags)
	}
	exprs := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprs[name] = attr.Expr
	}
	return &config.RuleBlock{
		Stage:      r.Stage,
		Target:     r.Target,
		Inputs:     r.Inputs,
		Attributes: exprs,
		Range:      r.DeclRange,
	}, nil
}

// isExprDefined checks if an optional HCL expression was present in the
// source. The decoder fills omitted optional attributes with a zero-width
// placeholder expression, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	defined := rng.End.Byte > rng.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", rng.String(),
		"is_defined", defined,
	)
	return defined
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
