// Package core provides the fundamental interfaces and types for smart contracts
// that run on the contract storage engine.
package core

import (
	"github.com/holiman/uint256"
)

// Msg carries the message attached to a contract call.
type Msg struct {
	// Sender is the account that initiated the call
	Sender Address
	// Value is transferred from Sender to the called contract before the method runs
	Value uint64
}

// Context represents the execution context of a smart contract.
// It provides access to the contract's persisted fields and to other accounts.
type Context interface {
	// Sender returns the address of the account that called the contract
	Sender() Address

	// Value returns the value attached to the current call
	Value() uint64

	// ContractAddress returns the address of the current contract
	ContractAddress() Address

	// Balance returns the balance of the given address
	Balance(addr Address) (*uint256.Int, error)

	// Transfer sends funds from the contract to the specified address
	Transfer(to Address, amount uint64) error

	// Get returns the value of a scalar field, nil when it was never set
	Get(field string) (any, error)

	// Set updates a scalar field. A nil value removes it
	Set(field string, value any) error

	// Collection returns the root of a collection field
	Collection(field string) (Collection, error)

	// NewCollection creates an unattached collection that can be stored
	// as a value inside another collection
	NewCollection() Collection

	// Call invokes a method on another contract in a nested frame
	Call(contract Address, method string, args ...any) (any, error)

	// Library returns a dependency of the current contract by its id
	Library(id string) (*Library, error)

	// Log emits an event, kept only when the frame commits
	Log(event string, keyValues ...any)
}

// Collection is a bounded-depth nested map persisted under a contract field.
type Collection interface {
	// Get returns the value stored under key, nil when absent.
	// Nested collections are returned as Collection values
	Get(key string) (any, error)

	// Set stores a scalar or a Collection under key. A nil value deletes the entry
	Set(key string, value any) error

	// Delete removes an entry. Populated nested collections can not be removed
	Delete(key string) error

	// Iterator walks the leaves under the optional sub path
	Iterator(path ...string) Iterator

	// Level returns the nesting level, 1 for a root collection
	Level() int
}

// Iterator walks key/value pairs in order. It is not restartable.
type Iterator interface {
	Next() bool
	Key() string
	Value() any
	Error() error
	Release()
}

// Event is emitted by a contract through Context.Log
type Event struct {
	Contract  Address `json:"contract"`
	Name      string  `json:"name"`
	KeyValues []any   `json:"key_values,omitempty"`
}
