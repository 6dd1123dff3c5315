package storage_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/storage"
	"github.com/govm-net/vmstore/storage/memory"
	"github.com/govm-net/vmstore/types"
)

func newState(t *testing.T) *storage.State {
	return storage.NewState(memory.New())
}

func TestCreateAccount(t *testing.T) {
	st := newState(t)

	a1, err := st.CreateAccount(uint256.NewInt(100))
	require.NoError(t, err)
	a2, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)
	assert.False(t, a1.IsZero())

	acc, err := st.Account(a1)
	require.NoError(t, err)
	assert.Equal(t, types.KindNormal, acc.Kind)
	assert.Equal(t, uint64(100), acc.Balance.Uint64())

	_, err = st.Account(core.AddressFromString("9999999999999999999999999999999999999999"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAddressesAreDeterministic(t *testing.T) {
	first, err := newState(t).CreateAccount(uint256.NewInt(1))
	require.NoError(t, err)
	second, err := newState(t).CreateAccount(uint256.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCreateContractAndLibrary(t *testing.T) {
	st := newState(t)
	owner, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)

	lib, err := st.CreateLibrary("mathlib", owner)
	require.NoError(t, err)
	assert.Equal(t, types.KindLibrary, lib.Kind)

	c, err := st.CreateContract("counter", "counter", owner, []core.Address{lib.Address})
	require.NoError(t, err)

	acc, err := st.Account(c.Address)
	require.NoError(t, err)
	assert.Equal(t, types.KindContract, acc.Kind)
	assert.Equal(t, "counter", acc.Entry)
	assert.Equal(t, owner, acc.Owner)
	assert.Equal(t, []core.Address{lib.Address}, acc.Dependencies)
	assert.Equal(t, core.Hash([]byte("counter")), acc.CodeHash)
}

func TestFieldData(t *testing.T) {
	st := newState(t)
	addr, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)
	other, err := st.CreateAccount(uint256.NewInt(0))
	require.NoError(t, err)

	require.NoError(t, st.Put(addr, "a@x1", []byte("0")))
	require.NoError(t, st.Put(addr, "a@x1@x11", []byte("1200")))
	require.NoError(t, st.Put(addr, "a@x2", []byte("12")))
	require.NoError(t, st.Put(addr, "b", []byte("13")))
	require.NoError(t, st.Put(other, "a@x1", []byte("1999")))

	v, err := st.Get(addr, "a@x2")
	require.NoError(t, err)
	assert.Equal(t, []byte("12"), v)

	it := st.ScanPrefix(addr, "a@")
	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}
	require.NoError(t, it.Error())
	it.Release()
	assert.Equal(t, []string{"a@x1", "a@x1@x11", "a@x2"}, keys)

	require.NoError(t, st.Remove(addr, "a@x2"))
	_, err = st.Get(addr, "a@x2")
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = st.Remove(addr, "a@x2")
	var stateErr *core.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, core.ErrNotFound, stateErr.Kind)

	data := st.Data(other)
	v, err = data.Get("a@x1")
	require.NoError(t, err)
	assert.Equal(t, []byte("1999"), v)
}

func TestTransfer(t *testing.T) {
	st := newState(t)
	from, err := st.CreateAccount(uint256.NewInt(100))
	require.NoError(t, err)
	to, err := st.CreateAccount(uint256.NewInt(5))
	require.NoError(t, err)

	require.NoError(t, st.Transfer(from, to, 40))

	b, err := st.Balance(from)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), b.Uint64())
	b, err = st.Balance(to)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), b.Uint64())

	err = st.Transfer(from, to, 61)
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)

	b, err = st.Balance(core.AddressFromString("9999999999999999999999999999999999999999"))
	require.NoError(t, err)
	assert.True(t, b.IsZero())
}
