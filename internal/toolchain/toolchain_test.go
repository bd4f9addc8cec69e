package toolchain

import (
	"context"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type noopModule struct{ kind string }

func (m noopModule) Register(t *Toolchain) {
	t.Register(m.kind, func(cty.Value) (Func, error) {
		return func(context.Context, Invocation) error { return nil }, nil
	})
}

func TestToolchain_Resolve(t *testing.T) {
	tc := New(noopModule{"b"}, noopModule{"a"})
	assert.Equal(t, []string{"a", "b"}, tc.Kinds())

	fn, err := tc.Resolve(task.Action{Kind: "a", Args: cty.EmptyObjectVal})
	require.NoError(t, err)
	assert.NoError(t, fn(context.Background(), Invocation{}))

	_, err = tc.Resolve(task.Action{Kind: "javac"})
	var unknown UnknownKindError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "javac", unknown.Kind)
	assert.Equal(t, []string{"a", "b"}, unknown.Known)
}

func TestToolchain_DuplicateKindPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(noopModule{"a"}, noopModule{"a"})
	})
}

type sampleArgs struct {
	Name    *string           `cty:"name"`
	Command []string          `cty:"command"`
	Env     map[string]string `cty:"env"`
	Retries *int              `cty:"retries"`
}

func TestDecodeArgs(t *testing.T) {
	t.Run("tuples and missing attributes", func(t *testing.T) {
		var args sampleArgs
		err := DecodeArgs(cty.ObjectVal(map[string]cty.Value{
			"command": cty.TupleVal([]cty.Value{cty.StringVal("go"), cty.StringVal("vet")}),
			"retries": cty.NumberIntVal(2),
		}), &args)
		require.NoError(t, err)
		assert.Nil(t, args.Name)
		assert.Equal(t, []string{"go", "vet"}, args.Command)
		require.NotNil(t, args.Retries)
		assert.Equal(t, 2, *args.Retries)
	})

	t.Run("null means empty", func(t *testing.T) {
		var args sampleArgs
		require.NoError(t, DecodeArgs(cty.NullVal(cty.DynamicPseudoType), &args))
		assert.Nil(t, args.Command)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		var args sampleArgs
		err := DecodeArgs(cty.ObjectVal(map[string]cty.Value{
			"colour": cty.StringVal("red"),
		}), &args)
		assert.Error(t, err)
	})

	t.Run("wrong type", func(t *testing.T) {
		var args sampleArgs
		err := DecodeArgs(cty.ObjectVal(map[string]cty.Value{
			"retries": cty.StringVal("many"),
		}), &args)
		assert.Error(t, err)
	})
}

func TestRequireString(t *testing.T) {
	v := "x"
	got, err := RequireString("path", &v)
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	empty := ""
	_, err = RequireString("path", &empty)
	assert.ErrorContains(t, err, `"path"`)
	_, err = RequireString("path", nil)
	assert.Error(t, err)
}
