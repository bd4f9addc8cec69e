package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// InputVariable is the name under which rule expressions see their declared
// inputs, keyed by model path.
const InputVariable = "input"

// Functions returns the functions available to build-file expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"join":      stdlib.JoinFunc,
		"split":     stdlib.SplitFunc,
		"format":    stdlib.FormatFunc,
		"concat":    stdlib.ConcatFunc,
		"length":    stdlib.LengthFunc,
		"coalesce":  stdlib.CoalesceFunc,
		"merge":     stdlib.MergeFunc,
		"contains":  stdlib.ContainsFunc,
	}
}

// EvalContext builds the evaluation context for build-file expressions.
// A nil vars map yields a context with functions only.
func EvalContext(vars map[string]cty.Value) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: vars,
		Functions: Functions(),
	}
}

// InputsValue packs resolved rule inputs into the object bound to
// InputVariable.
func InputsValue(inputs map[string]cty.Value) cty.Value {
	if len(inputs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(inputs)
}
