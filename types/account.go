// Package types contains the persisted account record and the call receipt
// shared by the storage layer and the engine.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/govm-net/vmstore/core"
)

// AccountKind is the kind of an account record
type AccountKind string

const (
	// KindNormal accounts only hold a balance
	KindNormal AccountKind = "normal"
	// KindContract accounts hold code and persisted fields and can be called
	KindContract AccountKind = "contract"
	// KindLibrary accounts hold code used by contracts, they are never called
	KindLibrary AccountKind = "library"
)

// Account is the record stored for every address.
type Account struct {
	Address      core.Address
	Kind         AccountKind
	Balance      *uint256.Int
	Code         string
	Entry        string
	Owner        core.Address
	Dependencies []core.Address
	CodeHash     [32]byte
}

type accountJSON struct {
	Address      core.Address   `json:"address"`
	Kind         AccountKind    `json:"kind"`
	Balance      string         `json:"balance"`
	Code         string         `json:"code,omitempty"`
	Entry        string         `json:"entry,omitempty"`
	Owner        core.Address   `json:"owner"`
	Dependencies []core.Address `json:"dependencies,omitempty"`
	CodeHash     string         `json:"code_hash,omitempty"`
}

// MarshalJSON encodes the balance as a decimal string.
func (a *Account) MarshalJSON() ([]byte, error) {
	balance := a.Balance
	if balance == nil {
		balance = new(uint256.Int)
	}
	out := accountJSON{
		Address:      a.Address,
		Kind:         a.Kind,
		Balance:      balance.Dec(),
		Code:         a.Code,
		Entry:        a.Entry,
		Owner:        a.Owner,
		Dependencies: a.Dependencies,
	}
	if a.CodeHash != ([32]byte{}) {
		out.CodeHash = hex.EncodeToString(a.CodeHash[:])
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Account) UnmarshalJSON(data []byte) error {
	var in accountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	balance, err := uint256.FromDecimal(in.Balance)
	if err != nil {
		return fmt.Errorf("invalid balance %q: %w", in.Balance, err)
	}
	*a = Account{
		Address:      in.Address,
		Kind:         in.Kind,
		Balance:      balance,
		Code:         in.Code,
		Entry:        in.Entry,
		Owner:        in.Owner,
		Dependencies: in.Dependencies,
	}
	if in.CodeHash != "" {
		h, err := hex.DecodeString(in.CodeHash)
		if err != nil || len(h) != len(a.CodeHash) {
			return fmt.Errorf("invalid code hash %q", in.CodeHash)
		}
		copy(a.CodeHash[:], h)
	}
	return nil
}

// Callable reports whether the account can be the target of a call.
func (a *Account) Callable() bool {
	return a.Kind == KindContract
}
