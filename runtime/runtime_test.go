package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/core"
)

func noop(ctx core.Context, args ...any) (any, error) { return nil, nil }

func TestRegisterAndLoadContract(t *testing.T) {
	n := NewNative()
	require.NoError(t, n.RegisterContract("token", func() *core.Definition {
		return core.NewDefinition("token").
			Scalar("supply").
			Collection("balances").
			Method("mint", noop)
	}))

	def, err := n.LoadContract("any code", "token")
	require.NoError(t, err)
	assert.Equal(t, "token", def.Name)

	fd, ok := def.Field("balances")
	require.True(t, ok)
	assert.Equal(t, core.CollectionField, fd.Kind)
	_, ok = def.Lookup("mint")
	assert.True(t, ok)

	_, err = n.LoadContract("", "missing")
	assert.Error(t, err)

	err = n.RegisterContract("token", func() *core.Definition { return core.NewDefinition("token") })
	assert.Error(t, err)
	assert.Equal(t, []string{"token"}, n.Contracts())
}

func TestRegisterContractValidatesFields(t *testing.T) {
	n := NewNative()

	err := n.RegisterContract("long", func() *core.Definition {
		return core.NewDefinition("long").Scalar(strings.Repeat("f", 33))
	})
	assert.ErrorIs(t, err, core.ErrKeyTooLong)

	require.NoError(t, n.RegisterContract("ok", func() *core.Definition {
		return core.NewDefinition("ok").Scalar(strings.Repeat("f", 32))
	}))

	err = n.RegisterContract("dup", func() *core.Definition {
		return core.NewDefinition("dup").Scalar("a").Collection("a")
	})
	assert.Error(t, err)

	err = n.RegisterContract("dupmethod", func() *core.Definition {
		return core.NewDefinition("dupmethod").Method("m", noop).Method("m", noop)
	})
	assert.Error(t, err)
}

func TestLibraries(t *testing.T) {
	n := NewNative()
	require.NoError(t, n.RegisterLibrary("mathlib", func() *core.Library {
		return core.NewLibrary("mathlib").Func("double", func(ctx core.Context, args ...any) (any, error) {
			return args[0].(int64) * 2, nil
		})
	}))

	lib, err := n.LoadLibrary(" mathlib\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"double"}, lib.Functions())

	v, err := lib.Invoke(nil, "double", int64(21))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = lib.Invoke(nil, "triple", int64(1))
	assert.ErrorIs(t, err, core.ErrMethodNotFound)

	_, err = n.LoadLibrary("unknown")
	assert.Error(t, err)
	assert.Error(t, n.RegisterLibrary("mathlib", func() *core.Library { return core.NewLibrary("mathlib") }))
}
