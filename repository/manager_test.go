package repository

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/runtime"
	"github.com/govm-net/vmstore/storage"
	"github.com/govm-net/vmstore/storage/memory"
)

type countingRuntime struct {
	*runtime.Native
	contractLoads int
}

func (r *countingRuntime) LoadContract(code, entry string) (*core.Definition, error) {
	r.contractLoads++
	return r.Native.LoadContract(code, entry)
}

func setupManager(t *testing.T) (*Manager, *countingRuntime, *storage.State) {
	native := runtime.NewNative()
	require.NoError(t, native.RegisterContract("counter", func() *core.Definition {
		return core.NewDefinition("counter").Scalar("count")
	}))
	require.NoError(t, native.RegisterLibrary("mathlib", func() *core.Library {
		return core.NewLibrary("mathlib")
	}))
	rt := &countingRuntime{Native: native}
	return NewManager(rt), rt, storage.NewState(memory.New())
}

func TestManagerLoad(t *testing.T) {
	manager, rt, st := setupManager(t)

	owner, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)
	lib, err := st.CreateLibrary("mathlib", owner)
	require.NoError(t, err)
	acc, err := st.CreateContract("counter v1", "counter", owner, []core.Address{lib.Address})
	require.NoError(t, err)

	code, err := manager.Load(st, acc)
	require.NoError(t, err)
	assert.Equal(t, acc.Address, code.Address)
	assert.Equal(t, "counter", code.Definition.Name)
	require.Contains(t, code.Dependencies, "mathlib")
	assert.Equal(t, lib.Address, code.Dependencies["mathlib"].Address)

	// the definition is cached by code
	_, err = manager.Load(st, acc)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.contractLoads)
}

func TestManagerRejectsNonContracts(t *testing.T) {
	manager, _, st := setupManager(t)

	owner, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)
	normal, err := st.Account(owner)
	require.NoError(t, err)
	_, err = manager.Load(st, normal)
	assert.ErrorIs(t, err, core.ErrNoCode)

	lib, err := st.CreateLibrary("mathlib", owner)
	require.NoError(t, err)
	_, err = manager.Load(st, lib)
	assert.ErrorIs(t, err, core.ErrLibraryNotCallable)
}

func TestResolveDependencies(t *testing.T) {
	manager, _, st := setupManager(t)

	owner, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)

	_, err = manager.ResolveDependencies(st, []core.Address{owner})
	assert.ErrorIs(t, err, core.ErrDependencyNotLibrary)

	_, err = manager.ResolveDependencies(st, []core.Address{core.AddressFromString("9999999999999999999999999999999999999999")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	unknown, err := st.CreateLibrary("nosuchlib", owner)
	require.NoError(t, err)
	_, err = manager.ResolveDependencies(st, []core.Address{unknown.Address})
	assert.Error(t, err)

	table, err := manager.ResolveDependencies(st, nil)
	require.NoError(t, err)
	assert.Empty(t, table)
}
