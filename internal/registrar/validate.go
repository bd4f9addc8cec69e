package registrar

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgrid/internal/model"
	"github.com/specialistvlad/buildgrid/internal/modelpath"
)

// validate evaluates a validate rule's condition and fails with its
// error_message when the condition is false.
func validate(rc *model.RuleContext, inputs []modelpath.Path, attrs map[string]hcl.Expression) error {
	evalCtx, err := evalContext(rc, inputs)
	if err != nil {
		return err
	}
	subject, err := toValue(rc.Subject())
	if err != nil {
		return err
	}
	evalCtx.Variables["self"] = subject

	cond, err := evaluate(attrs["condition"], evalCtx)
	if err != nil {
		return fmt.Errorf("attribute 'condition': %w", err)
	}
	ok, err := asBool(cond)
	if err != nil {
		return fmt.Errorf("attribute 'condition': %w", err)
	}
	if ok {
		return nil
	}

	msg := "condition is false"
	if expr, defined := attrs["error_message"]; defined {
		v, err := evaluate(expr, evalCtx)
		if err != nil {
			return fmt.Errorf("attribute 'error_message': %w", err)
		}
		if msg, err = asString(v); err != nil {
			return fmt.Errorf("attribute 'error_message': %w", err)
		}
	}
	return errors.New(msg)
}
