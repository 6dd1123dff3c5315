// Package api provides the interfaces for the engine that stores and executes contracts.
// This package defines the API between the host and the engine, but is not directly used by contracts.
package api

import (
	"context"

	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/types"
)

// VM represents the engine that creates accounts and executes contract calls
type VM interface {
	// CreateAccount creates a normal account holding balance
	CreateAccount(ctx context.Context, balance uint64) (core.Address, error)

	// CreateLibrary creates a library account, which contracts may depend on
	CreateLibrary(ctx context.Context, code string, owner core.Address) (core.Address, error)

	// CreateContract creates a contract account and runs its deploy method.
	// A contract without a deploy method is created with empty fields and no
	// frame runs for it. No record is created when deploy fails
	CreateContract(ctx context.Context, code, entry string, owner core.Address, deps ...core.Address) (core.Address, error)

	// CallContract executes a method in a top level frame and returns its result
	CallContract(ctx context.Context, msg core.Msg, contract core.Address, method string, args ...any) (any, error)

	// Call is CallContract returning the full receipt
	Call(ctx context.Context, msg core.Msg, contract core.Address, method string, args ...any) (*types.Receipt, error)
}

// ContractConfig defines configuration for contract creation and execution
type ContractConfig struct {
	// MaxCallDepth is the maximum depth of contract calls
	MaxCallDepth uint8

	// MaxCodeSize is the maximum size of contract code in bytes
	MaxCodeSize uint64
}

// DefaultContractConfig returns a default configuration for contracts
func DefaultContractConfig() ContractConfig {
	return ContractConfig{
		MaxCallDepth: 8,
		MaxCodeSize:  1024 * 1024, // 1MB
	}
}
