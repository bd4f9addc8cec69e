package toolchain

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeArgs decodes an argument object into out, a pointer to a struct with
// `cty` field tags. Every attribute is optional at this level: absent
// attributes decode to nil, so optional scalars should be pointer fields.
// Unknown attributes are rejected.
func DecodeArgs(args cty.Value, out any) error {
	ty, err := gocty.ImpliedType(out)
	if err != nil {
		return fmt.Errorf("argument struct %T: %w", out, err)
	}
	if !ty.IsObjectType() {
		return fmt.Errorf("argument struct %T does not describe an object", out)
	}

	if args.IsNull() {
		args = cty.EmptyObjectVal
	}
	if !args.IsWhollyKnown() {
		return fmt.Errorf("arguments contain unknown values")
	}

	attrs := ty.AttributeTypes()
	optional := make([]string, 0, len(attrs))
	for name := range attrs {
		optional = append(optional, name)
	}
	want := cty.ObjectWithOptionalAttrs(attrs, optional)

	converted, err := convert.Convert(args, want)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, out)
}

// RequireString returns *s, or an error naming attr when it is absent or empty.
func RequireString(attr string, s *string) (string, error) {
	if s == nil || *s == "" {
		return "", fmt.Errorf("missing required argument %q", attr)
	}
	return *s, nil
}
