// Package repository 负责合约代码的加载与依赖表解析
package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/runtime"
	"github.com/govm-net/vmstore/storage"
	"github.com/govm-net/vmstore/types"
)

// Manager 代码管理器，按代码哈希缓存已加载的合约定义和库
type Manager struct {
	runtime runtime.Runtime

	mu        sync.Mutex
	contracts map[[32]byte]*core.Definition
	libraries map[[32]byte]*core.Library
}

// ContractCode 已解析的合约代码
type ContractCode struct {
	Address      core.Address             // 合约地址
	Definition   *core.Definition         // 字段表和方法表
	Dependencies map[string]*core.Library // 依赖表：库名 -> 库
	Hash         [32]byte                 // 代码哈希
}

// NewManager 创建代码管理器
func NewManager(rt runtime.Runtime) *Manager {
	return &Manager{
		runtime:   rt,
		contracts: make(map[[32]byte]*core.Definition),
		libraries: make(map[[32]byte]*core.Library),
	}
}

// Load 加载合约定义并解析其依赖表
func (m *Manager) Load(state *storage.State, acc *types.Account) (*ContractCode, error) {
	switch acc.Kind {
	case types.KindContract:
	case types.KindLibrary:
		return nil, &core.StateError{Kind: core.ErrLibraryNotCallable, Key: acc.Address.String()}
	default:
		return nil, &core.StateError{Kind: core.ErrNoCode, Key: acc.Address.String()}
	}

	deps, err := m.ResolveDependencies(state, acc.Dependencies)
	if err != nil {
		return nil, err
	}
	def, err := m.LoadContract(acc.Code, acc.Entry)
	if err != nil {
		return nil, err
	}

	return &ContractCode{
		Address:      acc.Address,
		Definition:   def,
		Dependencies: deps,
		Hash:         acc.CodeHash,
	}, nil
}

// LoadContract 通过运行时加载合约定义，同一代码只加载一次
func (m *Manager) LoadContract(code, entry string) (*core.Definition, error) {
	hash := core.Hash([]byte(entry + "\x00" + code))

	m.mu.Lock()
	defer m.mu.Unlock()
	if def, ok := m.contracts[hash]; ok {
		return def, nil
	}

	def, err := m.runtime.LoadContract(code, entry)
	if err != nil {
		slog.Error("failed to load contract", "entry", entry, "error", err)
		return nil, fmt.Errorf("failed to load contract %s: %w", entry, err)
	}
	m.contracts[hash] = def
	return def, nil
}

// LoadLibrary 通过运行时加载库代码
func (m *Manager) LoadLibrary(code string) (*core.Library, error) {
	hash := core.Hash([]byte(code))

	m.mu.Lock()
	defer m.mu.Unlock()
	if lib, ok := m.libraries[hash]; ok {
		return lib, nil
	}

	lib, err := m.runtime.LoadLibrary(code)
	if err != nil {
		slog.Error("failed to load library", "error", err)
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	m.libraries[hash] = lib
	return lib, nil
}

// ResolveDependencies 解析依赖地址为依赖表，所有依赖必须是已存在的库
func (m *Manager) ResolveDependencies(state *storage.State, deps []core.Address) (map[string]*core.Library, error) {
	table := make(map[string]*core.Library, len(deps))
	for _, addr := range deps {
		acc, err := state.Account(addr)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("missing dependency: %w", err)
			}
			return nil, err
		}
		if acc.Kind != types.KindLibrary {
			return nil, &core.StateError{Kind: core.ErrDependencyNotLibrary, Key: addr.String()}
		}

		lib, err := m.LoadLibrary(acc.Code)
		if err != nil {
			return nil, err
		}
		if prev, exists := table[lib.Name]; exists && prev.Address != addr {
			return nil, fmt.Errorf("duplicate dependency %s: %s and %s", lib.Name, prev.Address, addr)
		}
		table[lib.Name] = lib.At(addr)
	}
	return table, nil
}
