package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/types"
)

const nonceKey = "nonce"

// KeyIterator walks the field entries of one account.
// Keys are relative to the account namespace.
type KeyIterator interface {
	Next() bool
	Key() string
	Value() []byte
	Error() error
	Release()
}

// DataStore is the field namespace of one account.
type DataStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// Remove fails with a NotFound StateError when the key is absent
	Remove(key string) error
	// Scan returns a lazy iterator over the keys starting with prefix
	Scan(prefix string) KeyIterator
}

// State implements the account level operations over a store.
type State struct {
	store Store
}

// NewState creates a State over store.
func NewState(store Store) *State {
	return &State{store: store}
}

// Store returns the underlying store.
func (s *State) Store() Store {
	return s.store
}

// Account loads an account record.
func (s *State) Account(addr core.Address) (*types.Account, error) {
	data, err := s.store.Get(AccountKey(addr))
	if errors.Is(err, ErrNotFound) {
		return nil, &core.StateError{Kind: core.ErrNotFound, Key: addr.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}

	acc := new(types.Account)
	if err := json.Unmarshal(data, acc); err != nil {
		return nil, &core.CorruptEncodingError{Key: addr.String(), Data: data, Reason: err.Error()}
	}
	return acc, nil
}

// Exists reports whether an account record exists.
func (s *State) Exists(addr core.Address) (bool, error) {
	_, err := s.store.Get(AccountKey(addr))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PutAccount writes an account record.
func (s *State) PutAccount(acc *types.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", acc.Address, err)
	}
	return s.store.Put(AccountKey(acc.Address), data)
}

// Get reads a field entry of an account.
func (s *State) Get(addr core.Address, key string) ([]byte, error) {
	data, err := s.store.Get(DataKey(addr, key))
	if errors.Is(err, ErrNotFound) {
		return nil, &core.StateError{Kind: core.ErrNotFound, Key: key}
	}
	return data, err
}

// Put writes a field entry of an account.
func (s *State) Put(addr core.Address, key string, value []byte) error {
	return s.store.Put(DataKey(addr, key), value)
}

// Remove deletes a field entry of an account.
func (s *State) Remove(addr core.Address, key string) error {
	k := DataKey(addr, key)
	if _, err := s.store.Get(k); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &core.StateError{Kind: core.ErrNotFound, Key: key}
		}
		return err
	}
	return s.store.Delete(k)
}

// ScanPrefix iterates the field entries of an account whose key starts with prefix.
func (s *State) ScanPrefix(addr core.Address, prefix string) KeyIterator {
	base := len(DataPrefix(addr))
	return &dataIterator{
		it:   s.store.NewIterator(DataKey(addr, prefix)),
		base: base,
	}
}

// Data returns the field namespace of an account.
func (s *State) Data(addr core.Address) DataStore {
	return &accountData{state: s, addr: addr}
}

// CreateAccount creates a normal account holding balance.
func (s *State) CreateAccount(balance *uint256.Int) (core.Address, error) {
	addr, err := s.nextAddress(core.ZeroAddress)
	if err != nil {
		return core.ZeroAddress, err
	}
	acc := &types.Account{
		Address: addr,
		Kind:    types.KindNormal,
		Balance: new(uint256.Int).Set(balance),
	}
	if err := s.PutAccount(acc); err != nil {
		return core.ZeroAddress, err
	}
	return addr, nil
}

// CreateLibrary creates a library account.
func (s *State) CreateLibrary(code string, owner core.Address) (*types.Account, error) {
	addr, err := s.nextAddress(owner)
	if err != nil {
		return nil, err
	}
	acc := &types.Account{
		Address:  addr,
		Kind:     types.KindLibrary,
		Balance:  new(uint256.Int),
		Code:     code,
		Owner:    owner,
		CodeHash: core.Hash([]byte(code)),
	}
	if err := s.PutAccount(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// CreateContract creates a contract account. Running its deploy method is
// the caller's business.
func (s *State) CreateContract(code, entry string, owner core.Address, deps []core.Address) (*types.Account, error) {
	addr, err := s.nextAddress(owner)
	if err != nil {
		return nil, err
	}
	acc := &types.Account{
		Address:      addr,
		Kind:         types.KindContract,
		Balance:      new(uint256.Int),
		Code:         code,
		Entry:        entry,
		Owner:        owner,
		Dependencies: append([]core.Address(nil), deps...),
		CodeHash:     core.Hash([]byte(code)),
	}
	if err := s.PutAccount(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Balance returns the balance of addr, zero for unknown accounts.
func (s *State) Balance(addr core.Address) (*uint256.Int, error) {
	acc, err := s.Account(addr)
	if errors.Is(err, core.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(acc.Balance), nil
}

// Transfer moves amount from one account to another.
func (s *State) Transfer(from, to core.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}

	src, err := s.Account(from)
	if err != nil {
		return err
	}
	dst, err := s.Account(to)
	if err != nil {
		return err
	}

	value := uint256.NewInt(amount)
	if src.Balance.Lt(value) {
		return &core.StateError{Kind: core.ErrInsufficientBalance, Key: from.String()}
	}
	sum, overflow := new(uint256.Int).AddOverflow(dst.Balance, value)
	if overflow {
		return fmt.Errorf("balance overflow: %s", to)
	}

	src.Balance = new(uint256.Int).Sub(src.Balance, value)
	dst.Balance = sum
	if err := s.PutAccount(src); err != nil {
		return err
	}
	return s.PutAccount(dst)
}

// nextAddress derives a fresh address from creator and the global nonce.
func (s *State) nextAddress(creator core.Address) (core.Address, error) {
	var nonce uint64
	data, err := s.store.Get(MetaKey(nonceKey))
	switch {
	case err == nil && len(data) == 8:
		nonce = binary.BigEndian.Uint64(data)
	case err == nil:
		return core.ZeroAddress, &core.CorruptEncodingError{Key: nonceKey, Data: data, Reason: "nonce must be 8 bytes"}
	case !errors.Is(err, ErrNotFound):
		return core.ZeroAddress, fmt.Errorf("get nonce: %w", err)
	}

	for {
		addr := core.Address(crypto.CreateAddress(common.Address(creator), nonce))
		nonce++
		exists, err := s.Exists(addr)
		if err != nil {
			return core.ZeroAddress, err
		}
		if !exists {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, nonce)
			if err := s.store.Put(MetaKey(nonceKey), buf); err != nil {
				return core.ZeroAddress, err
			}
			return addr, nil
		}
	}
}

type accountData struct {
	state *State
	addr  core.Address
}

func (d *accountData) Get(key string) ([]byte, error) {
	return d.state.Get(d.addr, key)
}

func (d *accountData) Put(key string, value []byte) error {
	return d.state.Put(d.addr, key, value)
}

func (d *accountData) Remove(key string) error {
	return d.state.Remove(d.addr, key)
}

func (d *accountData) Scan(prefix string) KeyIterator {
	return d.state.ScanPrefix(d.addr, prefix)
}

type dataIterator struct {
	it   Iterator
	base int
}

func (it *dataIterator) Next() bool    { return it.it.Next() }
func (it *dataIterator) Key() string   { return string(it.it.Key()[it.base:]) }
func (it *dataIterator) Value() []byte { return it.it.Value() }
func (it *dataIterator) Error() error  { return it.it.Error() }
func (it *dataIterator) Release()      { it.it.Release() }
