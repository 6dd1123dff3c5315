package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/govm-net/vmstore/api"
	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/repository"
	"github.com/govm-net/vmstore/runtime"
	"github.com/govm-net/vmstore/security"
	"github.com/govm-net/vmstore/storage"
	_ "github.com/govm-net/vmstore/storage/memory"
	"github.com/govm-net/vmstore/types"
)

// Engine is responsible for account creation, contract deployment and execution
type Engine struct {
	config      *Config
	backend     storage.Backend
	codeManager *repository.Manager
	logger      *slog.Logger
	metrics     *Metrics

	// one top level operation in flight at a time
	mu sync.Mutex
}

var _ api.VM = (*Engine)(nil)

// Config represents engine configuration
type Config struct {
	// Contract related configuration
	MaxContractSize uint64 // Maximum contract code size
	MaxCallDepth    int    // Maximum depth of nested calls

	BackendType   string         // Storage backend type
	BackendParams map[string]any // Storage backend parameters

	Runtime    runtime.Runtime       // Contract runtime, runtime.Default() when nil
	Logger     *slog.Logger          // slog.Default() when nil
	Registerer prometheus.Registerer // Metrics are not registered when nil
}

// DefaultConfig returns an in-memory configuration
func DefaultConfig() *Config {
	cc := api.DefaultContractConfig()
	return &Config{
		MaxContractSize: cc.MaxCodeSize,
		MaxCallDepth:    int(cc.MaxCallDepth),
		BackendType:     string(storage.MemoryBackend),
	}
}

// NewEngine opens the configured backend and creates an engine over it
func NewEngine(config *Config) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	backend, err := storage.Open(storage.BackendType(config.BackendType), config.BackendParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend: %w", err)
	}
	e, err := NewEngineWithBackend(config, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return e, nil
}

// NewEngineWithBackend creates an engine over an already opened backend.
// The engine owns the backend from now on
func NewEngineWithBackend(config *Config, backend storage.Backend) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rt := config.Runtime
	if rt == nil {
		rt = runtime.Default()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics, err := NewMetrics(config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &Engine{
		config:      config,
		backend:     backend,
		codeManager: repository.NewManager(rt),
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.MaxContractSize == 0 {
		return fmt.Errorf("invalid max contract size: %d", config.MaxContractSize)
	}
	if config.MaxCallDepth <= 0 {
		return fmt.Errorf("invalid max call depth: %d", config.MaxCallDepth)
	}
	return nil
}

// CreateAccount creates a normal account holding balance
func (e *Engine) CreateAccount(ctx context.Context, balance uint64) (core.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return core.ZeroAddress, err
	}

	var addr core.Address
	err := e.update(func(st *storage.State) error {
		var err error
		addr, err = st.CreateAccount(uint256.NewInt(balance))
		return err
	})
	if err != nil {
		return core.ZeroAddress, fmt.Errorf("failed to create account: %w", err)
	}
	e.logger.Info("account created", "address", addr, "balance", balance)
	return addr, nil
}

// CreateLibrary creates a library account after checking the runtime can load it
func (e *Engine) CreateLibrary(ctx context.Context, code string, owner core.Address) (core.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return core.ZeroAddress, err
	}
	if err := e.checkCodeSize(code); err != nil {
		return core.ZeroAddress, err
	}
	lib, err := e.codeManager.LoadLibrary(code)
	if err != nil {
		return core.ZeroAddress, err
	}

	var acc *types.Account
	err = e.update(func(st *storage.State) error {
		var err error
		acc, err = st.CreateLibrary(code, owner)
		return err
	})
	if err != nil {
		return core.ZeroAddress, fmt.Errorf("failed to create library: %w", err)
	}
	e.logger.Info("library created", "address", acc.Address, "name", lib.Name, "owner", owner)
	return acc.Address, nil
}

// CreateContract creates a contract account and runs its deploy method, if
// the contract has one, in a frame against the new address. No record is
// created when deploy fails
func (e *Engine) CreateContract(ctx context.Context, code, entry string, owner core.Address, deps ...core.Address) (core.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return core.ZeroAddress, err
	}
	if err := e.checkCodeSize(code); err != nil {
		return core.ZeroAddress, err
	}
	def, err := e.codeManager.LoadContract(code, entry)
	if err != nil {
		return core.ZeroAddress, err
	}

	tx := storage.NewOverlay(e.backend)
	st := storage.NewState(tx)
	if _, err := e.codeManager.ResolveDependencies(st, deps); err != nil {
		return core.ZeroAddress, err
	}
	acc, err := st.CreateContract(code, entry, owner, deps)
	if err != nil {
		return core.ZeroAddress, fmt.Errorf("failed to create contract: %w", err)
	}

	if _, ok := def.Lookup(core.DeployMethod); ok {
		traceID := uuid.NewString()
		f := e.newFrame(nil, tx, e.tracer(), core.Msg{Sender: owner}, acc.Address, core.DeployMethod, nil, traceID)
		if _, err := f.run(ctx); err != nil {
			tx.Discard()
			return core.ZeroAddress, fmt.Errorf("deploy %s failed: %w", entry, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.ZeroAddress, fmt.Errorf("failed to commit contract: %w", err)
	}
	e.logger.Info("contract created", "address", acc.Address, "entry", entry, "owner", owner, "dependencies", len(deps))
	return acc.Address, nil
}

// CallContract executes a method in a top level frame and returns its result
func (e *Engine) CallContract(ctx context.Context, msg core.Msg, contract core.Address, method string, args ...any) (any, error) {
	receipt, err := e.Call(ctx, msg, contract, method, args...)
	if err != nil {
		return nil, err
	}
	return receipt.Return, nil
}

// Call executes a method in a top level frame. The error of a failed frame
// is returned as raised by the contract
func (e *Engine) Call(ctx context.Context, msg core.Msg, contract core.Address, method string, args ...any) (*types.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := uuid.NewString()
	tx := storage.NewOverlay(e.backend)
	f := e.newFrame(nil, tx, e.tracer(), msg, contract, method, args, traceID)
	ret, err := f.run(ctx)
	if err != nil {
		tx.Discard()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit call: %w", err)
	}
	e.logger.Info("call committed", "trace", traceID, "contract", contract, "method", method, "events", len(f.events))

	return &types.Receipt{
		TraceID:  traceID,
		Contract: contract,
		Method:   method,
		Return:   ret,
		Events:   f.events,
	}, nil
}

// Account returns the account record stored at addr
func (e *Engine) Account(addr core.Address) (*types.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return storage.NewState(e.backend).Account(addr)
}

// Balance returns the balance of addr, zero for unknown accounts
func (e *Engine) Balance(addr core.Address) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return storage.NewState(e.backend).Balance(addr)
}

// Entry is a decoded field entry of a contract
type Entry struct {
	Key        string `json:"key"`
	Collection bool   `json:"collection,omitempty"`
	Value      any    `json:"value,omitempty"`
}

// Dump lists the decoded field entries of addr whose keys start with prefix
func (e *Engine) Dump(ctx context.Context, addr core.Address, prefix string) ([]Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it := storage.NewState(e.backend).ScanPrefix(addr, prefix)
	defer it.Release()

	var entries []Entry
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tag, v, err := codec.Decode(it.Value())
		if err != nil {
			return nil, withKey(err, it.Key())
		}
		entries = append(entries, Entry{Key: it.Key(), Collection: tag == codec.TagCollection, Value: v})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the backend
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.Close()
}

func (e *Engine) tracer() *security.CallTracer {
	return security.NewCallTracer(e.config.MaxCallDepth)
}

func (e *Engine) checkCodeSize(code string) error {
	if uint64(len(code)) > e.config.MaxContractSize {
		return fmt.Errorf("code size %d exceeds limit %d", len(code), e.config.MaxContractSize)
	}
	if code == "" {
		return errors.New("empty code")
	}
	return nil
}

// update runs fn in a transaction over the backend
func (e *Engine) update(fn func(st *storage.State) error) error {
	tx := storage.NewOverlay(e.backend)
	if err := fn(storage.NewState(tx)); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}
