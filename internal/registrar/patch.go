package registrar

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgrid/internal/model"
	"github.com/specialistvlad/buildgrid/internal/modelpath"
	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// patch applies a rule block's attributes to its subject.
func patch(rc *model.RuleContext, inputs []modelpath.Path, attrs map[string]hcl.Expression) error {
	evalCtx, err := evalContext(rc, inputs)
	if err != nil {
		return err
	}
	values := make(map[string]cty.Value, len(attrs))
	for _, name := range sortedNames(attrs) {
		v, err := evaluate(attrs[name], evalCtx)
		if err != nil {
			return fmt.Errorf("attribute '%s': %w", name, err)
		}
		values[name] = v
	}

	switch subject := rc.Subject().(type) {
	case *task.Spec:
		spec := subject.Clone()
		if err := patchTask(spec, values); err != nil {
			return err
		}
		return rc.SetSubject(spec)
	case cty.Value:
		v, err := patchSetting(subject, values)
		if err != nil {
			return err
		}
		return rc.SetSubject(v)
	default:
		return fmt.Errorf("cannot apply attributes to a value of type %T", subject)
	}
}

// patchTask replaces scalar fields and appends to list fields. A field is
// only written once its value converted cleanly.
func patchTask(spec *task.Spec, values map[string]cty.Value) error {
	for _, name := range sortedNames(values) {
		v := values[name]
		var err error
		switch name {
		case "description":
			err = assign(&spec.Description, v, asString)
		case "action":
			err = assign(&spec.Action.Kind, v, asString)
		case "args":
			err = assign(&spec.Action.Args, v, asObject)
		case "enabled":
			err = assign(&spec.Enabled, v, asBool)
		case "depends_on":
			err = appendStrings(&spec.DependsOn, v)
		case "must_run_after":
			err = appendStrings(&spec.MustRunAfter, v)
		case "should_run_after":
			err = appendStrings(&spec.ShouldRunAfter, v)
		case "mutex":
			err = appendStrings(&spec.Mutex, v)
		case "inputs":
			err = appendStrings(&spec.Inputs, v)
		case "outputs":
			err = appendStrings(&spec.Outputs, v)
		default:
			err = errors.New("unsupported task attribute")
		}
		if err != nil {
			return fmt.Errorf("attribute '%s': %w", name, err)
		}
	}
	return nil
}

// patchSetting replaces the whole value through `value` and merges every
// other attribute into an object value.
func patchSetting(current cty.Value, values map[string]cty.Value) (cty.Value, error) {
	if v, ok := values["value"]; ok {
		current = v
		delete(values, "value")
	}
	if len(values) == 0 {
		return current, nil
	}
	attrs := make(map[string]cty.Value)
	switch {
	case current.IsNull():
	case current.Type().IsObjectType() || current.Type().IsMapType():
		for it := current.ElementIterator(); it.Next(); {
			k, v := it.Element()
			attrs[k.AsString()] = v
		}
	default:
		return cty.NilVal, fmt.Errorf("cannot merge attributes into a %s setting", current.Type().FriendlyName())
	}
	for k, v := range values {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs), nil
}

func assign[T any](dst *T, v cty.Value, conv func(cty.Value) (T, error)) error {
	out, err := conv(v)
	if err != nil {
		return err
	}
	*dst = out
	return nil
}

func asObject(v cty.Value) (cty.Value, error) {
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return cty.NilVal, fmt.Errorf("must be an object, got %s", v.Type().FriendlyName())
	}
	return v, nil
}

func asString(v cty.Value) (string, error) {
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if s.IsNull() {
		return "", errors.New("must not be null")
	}
	return s.AsString(), nil
}

func asBool(v cty.Value) (bool, error) {
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, err
	}
	if b.IsNull() {
		return false, errors.New("must not be null")
	}
	return b.True(), nil
}

func appendStrings(dst *[]string, v cty.Value) error {
	list, err := convert.Convert(v, cty.List(cty.String))
	if err != nil {
		return err
	}
	if list.IsNull() {
		return nil
	}
	items := make([]string, 0, list.LengthInt())
	for it := list.ElementIterator(); it.Next(); {
		_, e := it.Element()
		if e.IsNull() {
			return errors.New("list elements must not be null")
		}
		items = append(items, e.AsString())
	}
	*dst = append(*dst, items...)
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
