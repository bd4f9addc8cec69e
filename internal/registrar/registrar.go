package registrar

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgrid/internal/config"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/model"
	"github.com/specialistvlad/buildgrid/internal/modelpath"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// SettingType is the model type of setting nodes.
const SettingType = "setting"

// Register adds a rule to reg for every declaration in m. All problems are
// reported together.
func Register(ctx context.Context, reg *model.Registry, m *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	for _, p := range m.Projects {
		for _, t := range p.Tasks {
			if err := registerTask(reg, p, t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, s := range m.Settings {
		if err := registerSetting(reg, s); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range m.Rules {
		if err := registerRule(reg, r); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Debug("Build declarations registered as model rules.", "tasks", m.TaskCount(), "settings", len(m.Settings), "rules", len(m.Rules))
	return nil
}

func registerTask(reg *model.Registry, p *config.Project, t *config.Task) error {
	ref := task.Ref{Project: p.Name, Name: t.Name}
	if _, err := modelpath.Parse(ref.Path().String()); err != nil || p.Name == "" || t.Name == "" {
		return fmt.Errorf("%s: invalid task name %q in project %q", rangeString(t.Range), t.Name, p.Name)
	}
	decl := *t
	dir := t.Dir
	if dir == "" {
		dir = p.Dir
	}
	return reg.Register(model.Rule{
		Stage:      model.Create,
		Target:     ref.Path(),
		Type:       task.ModelType,
		Descriptor: fmt.Sprintf("task %s (%s)", ref, rangeString(t.Range)),
		Action: func(rc *model.RuleContext) error {
			return rc.SetSubject(newSpec(ref, dir, &decl))
		},
	})
}

func newSpec(ref task.Ref, dir string, t *config.Task) *task.Spec {
	spec := task.New(ref.Project, ref.Name)
	spec.Dir = dir
	spec.Description = t.Description
	if t.Action != "" {
		spec.Action.Kind = t.Action
	}
	if !t.Args.IsNull() {
		spec.Action.Args = t.Args
	}
	spec.DependsOn = append(spec.DependsOn, t.DependsOn...)
	spec.MustRunAfter = append(spec.MustRunAfter, t.MustRunAfter...)
	spec.ShouldRunAfter = append(spec.ShouldRunAfter, t.ShouldRunAfter...)
	spec.Mutex = append(spec.Mutex, t.Mutex...)
	spec.Inputs = append(spec.Inputs, t.Inputs...)
	spec.Outputs = append(spec.Outputs, t.Outputs...)
	if t.Enabled != nil {
		spec.Enabled = *t.Enabled
	}
	return spec
}

func registerSetting(reg *model.Registry, s *config.Setting) error {
	p, err := modelpath.Parse(s.Path)
	if err != nil {
		return fmt.Errorf("%s: setting %q: %w", rangeString(s.Range), s.Path, err)
	}
	value := s.Value
	return reg.Register(model.Rule{
		Stage:      model.Create,
		Target:     p,
		Type:       SettingType,
		Descriptor: fmt.Sprintf("setting %s (%s)", p, rangeString(s.Range)),
		Action: func(rc *model.RuleContext) error {
			return rc.SetSubject(value)
		},
	})
}

func registerRule(reg *model.Registry, r *config.RuleBlock) error {
	where := rangeString(r.Range)
	stage, err := model.ParseStage(r.Stage)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	if stage == model.Create {
		return fmt.Errorf("%s: rule blocks cannot create nodes; declare a task or setting instead", where)
	}
	target, err := modelpath.Parse(r.Target)
	if err != nil {
		return fmt.Errorf("%s: rule target %q: %w", where, r.Target, err)
	}
	inputs := make([]modelpath.Path, 0, len(r.Inputs))
	for _, raw := range r.Inputs {
		p, err := modelpath.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: rule input %q: %w", where, raw, err)
		}
		inputs = append(inputs, p)
	}

	attrs := r.Attributes
	var action model.Action
	if stage == model.Validate {
		if _, ok := attrs["condition"]; !ok {
			return fmt.Errorf("%s: validate rules require a 'condition' attribute", where)
		}
		action = func(rc *model.RuleContext) error { return validate(rc, inputs, attrs) }
	} else {
		action = func(rc *model.RuleContext) error { return patch(rc, inputs, attrs) }
	}

	return reg.Register(model.Rule{
		Stage:      stage,
		Target:     target,
		Inputs:     inputs,
		Descriptor: fmt.Sprintf("%s %s (%s)", stage, target, where),
		Action:     action,
	})
}

// evalContext resolves the declared inputs of a running rule into the
// `input` variable.
func evalContext(rc *model.RuleContext, inputs []modelpath.Path) (*hcl.EvalContext, error) {
	values := make(map[string]cty.Value, len(inputs))
	for _, p := range inputs {
		raw, err := rc.Input(p)
		if err != nil {
			return nil, err
		}
		v, err := toValue(raw)
		if err != nil {
			return nil, fmt.Errorf("input '%s': %w", p, err)
		}
		values[p.String()] = v
	}
	return config.EvalContext(map[string]cty.Value{
		config.InputVariable: config.InputsValue(values),
	}), nil
}

func evaluate(expr hcl.Expression, evalCtx *hcl.EvalContext) (cty.Value, error) {
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, errors.New("value is not known")
	}
	return v, nil
}

func rangeString(r hcl.Range) string {
	if r.Filename == "" {
		return "<unknown>"
	}
	if r.Start.Line == 0 {
		return r.Filename
	}
	return fmt.Sprintf("%s:%d", r.Filename, r.Start.Line)
}
