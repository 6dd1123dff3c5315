// Package runtime turns stored contract code into callable definitions.
//
// The native runtime resolves code through definitions registered by Go
// packages: a contract's entry names a registered definition and a
// library's code names a registered library.
package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/core"
)

// Runtime loads contract and library code.
type Runtime interface {
	LoadContract(code, entry string) (*core.Definition, error)
	LoadLibrary(code string) (*core.Library, error)
}

// DefinitionConstructor builds a contract definition
type DefinitionConstructor func() *core.Definition

// LibraryConstructor builds a library
type LibraryConstructor func() *core.Library

// Native is a Runtime over registered Go definitions
type Native struct {
	mu        sync.RWMutex
	contracts map[string]DefinitionConstructor
	libraries map[string]LibraryConstructor
}

var defaultNative = NewNative()

// NewNative creates an empty native runtime
func NewNative() *Native {
	return &Native{
		contracts: make(map[string]DefinitionConstructor),
		libraries: make(map[string]LibraryConstructor),
	}
}

// Default returns the process wide native runtime
func Default() *Native {
	return defaultNative
}

// RegisterContract adds a contract definition under entry.
// The definition is built once here to validate its field table.
func (n *Native) RegisterContract(entry string, constructor DefinitionConstructor) error {
	if entry == "" || constructor == nil {
		return fmt.Errorf("invalid contract registration %q", entry)
	}
	if err := validateDefinition(constructor()); err != nil {
		return fmt.Errorf("contract %s: %w", entry, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.contracts[entry]; exists {
		return fmt.Errorf("contract entry %s already registered", entry)
	}
	n.contracts[entry] = constructor
	return nil
}

// RegisterLibrary adds a library under name.
func (n *Native) RegisterLibrary(name string, constructor LibraryConstructor) error {
	if name == "" || constructor == nil {
		return fmt.Errorf("invalid library registration %q", name)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.libraries[name]; exists {
		return fmt.Errorf("library %s already registered", name)
	}
	n.libraries[name] = constructor
	return nil
}

// LoadContract implements Runtime. The code text is opaque to the native
// runtime, the entry selects the definition.
func (n *Native) LoadContract(code, entry string) (*core.Definition, error) {
	n.mu.RLock()
	constructor, ok := n.contracts[entry]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("contract entry %q not registered", entry)
	}
	def := constructor()
	if err := validateDefinition(def); err != nil {
		return nil, fmt.Errorf("contract %s: %w", entry, err)
	}
	return def, nil
}

// LoadLibrary implements Runtime. The code text is the library name.
func (n *Native) LoadLibrary(code string) (*core.Library, error) {
	name := strings.TrimSpace(code)
	n.mu.RLock()
	constructor, ok := n.libraries[name]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("library %q not registered", name)
	}
	return constructor(), nil
}

// Contracts returns the registered contract entries, sorted
func (n *Native) Contracts() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.contracts))
	for name := range n.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Libraries returns the registered library names, sorted
func (n *Native) Libraries() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.libraries))
	for name := range n.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateDefinition(def *core.Definition) error {
	if def == nil {
		return fmt.Errorf("nil definition")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	for _, fd := range def.Fields() {
		if _, err := codec.ValidateKey(fd.Name, codec.MaxFieldKeyLen); err != nil {
			return fmt.Errorf("field %q: %w", fd.Name, err)
		}
	}
	return nil
}

// Package level functions that delegate to the default runtime

// RegisterContract adds a contract definition to the default runtime
func RegisterContract(entry string, constructor DefinitionConstructor) error {
	return defaultNative.RegisterContract(entry, constructor)
}

// RegisterLibrary adds a library to the default runtime
func RegisterLibrary(name string, constructor LibraryConstructor) error {
	return defaultNative.RegisterLibrary(name, constructor)
}
