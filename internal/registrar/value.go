package registrar

import (
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// toValue exposes a model node value to rule expressions.
func toValue(v any) (cty.Value, error) {
	switch v := v.(type) {
	case cty.Value:
		return v, nil
	case *task.Spec:
		return taskValue(v), nil
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	default:
		return cty.NilVal, fmt.Errorf("value of type %T cannot be used in expressions", v)
	}
}

func taskValue(s *task.Spec) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"project":          cty.StringVal(s.Project),
		"name":             cty.StringVal(s.Name),
		"path":             cty.StringVal(s.Ref().ID()),
		"dir":              cty.StringVal(s.Dir),
		"description":      cty.StringVal(s.Description),
		"action":           cty.StringVal(s.Action.Kind),
		"enabled":          cty.BoolVal(s.Enabled),
		"depends_on":       stringList(s.DependsOn),
		"must_run_after":   stringList(s.MustRunAfter),
		"should_run_after": stringList(s.ShouldRunAfter),
		"mutex":            stringList(s.Mutex),
		"inputs":           stringList(s.Inputs),
		"outputs":          stringList(s.Outputs),
	})
}

func stringList(in []string) cty.Value {
	if len(in) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(in))
	for i, s := range in {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
