package types

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/core"
)

func TestAccountJSON(t *testing.T) {
	balance, err := uint256.FromDecimal("340282366920938463463374607431768211456")
	require.NoError(t, err)

	acc := &Account{
		Address:      core.AddressFromString("1111111111111111111111111111111111111111"),
		Kind:         KindContract,
		Balance:      balance,
		Code:         "counter",
		Entry:        "counter",
		Owner:        core.AddressFromString("2222222222222222222222222222222222222222"),
		Dependencies: []core.Address{core.AddressFromString("3333333333333333333333333333333333333333")},
		CodeHash:     core.Hash([]byte("counter")),
	}

	data, err := json.Marshal(acc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"balance":"340282366920938463463374607431768211456"`)
	assert.Contains(t, string(data), `"owner":"0x2222222222222222222222222222222222222222"`)

	var decoded Account
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, acc.Address, decoded.Address)
	assert.Equal(t, acc.Kind, decoded.Kind)
	assert.Equal(t, 0, acc.Balance.Cmp(decoded.Balance))
	assert.Equal(t, acc.Dependencies, decoded.Dependencies)
	assert.Equal(t, acc.CodeHash, decoded.CodeHash)
	assert.True(t, decoded.Callable())
}

func TestAccountJSONNilBalance(t *testing.T) {
	data, err := json.Marshal(&Account{Kind: KindNormal})
	require.NoError(t, err)

	var decoded Account
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Balance.IsZero())
	assert.False(t, decoded.Callable())
}

func TestAccountJSONInvalidBalance(t *testing.T) {
	var decoded Account
	err := json.Unmarshal([]byte(`{"kind":"normal","balance":"-1"}`), &decoded)
	assert.Error(t, err)
}
