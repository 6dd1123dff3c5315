package storage

import (
	"fmt"
	"sort"
	"sync"
)

// BackendType names a backend implementation
type BackendType string

const (
	// MemoryBackend is the in-memory backend
	MemoryBackend BackendType = "memory"
	// LevelDBBackend is the goleveldb backend
	LevelDBBackend BackendType = "leveldb"
	// DBBackend is the gorm sqlite backend
	DBBackend BackendType = "db"
)

// Constructor opens a backend with implementation specific parameters
type Constructor func(params map[string]any) (Backend, error)

// Registry defines the interface for managing Backend implementations
type Registry interface {
	// Register adds a new Backend implementation to the registry
	Register(bt BackendType, constructor Constructor) error
	// Open returns a new instance of the specified backend type
	Open(bt BackendType, params map[string]any) (Backend, error)
	// ListRegistered returns the registered backend types, sorted
	ListRegistered() []BackendType
}

type registry struct {
	mu       sync.RWMutex
	backends map[BackendType]Constructor
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() Registry {
	return &registry{
		backends: make(map[BackendType]Constructor),
	}
}

// GetRegistry returns the global Registry instance
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(bt BackendType, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[bt]; exists {
		return fmt.Errorf("backend type %s already registered", bt)
	}
	r.backends[bt] = constructor
	return nil
}

func (r *registry) Open(bt BackendType, params map[string]any) (Backend, error) {
	r.mu.RLock()
	constructor, exists := r.backends[bt]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("backend type %s not found", bt)
	}
	if params == nil {
		params = make(map[string]any)
	}
	return constructor(params)
}

func (r *registry) ListRegistered() []BackendType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]BackendType, 0, len(r.backends))
	for bt := range r.backends {
		types = append(types, bt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Package level functions that delegate to defaultRegistry

// Register adds a new Backend implementation to the global registry
func Register(bt BackendType, constructor Constructor) error {
	return GetRegistry().Register(bt, constructor)
}

// Open returns a new backend of the given type, the memory backend when bt is empty
func Open(bt BackendType, params map[string]any) (Backend, error) {
	if bt == "" {
		bt = MemoryBackend
	}
	return GetRegistry().Open(bt, params)
}

// ListRegistered returns the backend types of the global registry
func ListRegistered() []BackendType {
	return GetRegistry().ListRegistered()
}
