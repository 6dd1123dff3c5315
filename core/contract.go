package core

import (
	"fmt"
	"sort"
)

// FieldKind tells whether a persisted field holds a scalar or a collection.
type FieldKind int

const (
	// ScalarField holds an integer, boolean, string or null
	ScalarField FieldKind = iota
	// CollectionField holds a nested map of bounded depth
	CollectionField
)

func (k FieldKind) String() string {
	switch k {
	case ScalarField:
		return "scalar"
	case CollectionField:
		return "collection"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldDescriptor describes one persisted field of a contract.
type FieldDescriptor struct {
	Name string
	Kind FieldKind
}

// Method is a contract entry point.
type Method func(ctx Context, args ...any) (any, error)

// DeployMethod is run once when a contract is created, if the contract defines it.
const DeployMethod = "deploy"

// Definition is the field descriptor table and the method table of a contract.
// It is built once and shared read-only by every frame that runs the contract.
type Definition struct {
	Name    string
	fields  map[string]FieldDescriptor
	order   []string
	methods map[string]Method
	err     error
}

// NewDefinition creates an empty contract definition.
func NewDefinition(name string) *Definition {
	return &Definition{
		Name:    name,
		fields:  make(map[string]FieldDescriptor),
		methods: make(map[string]Method),
	}
}

// Scalar declares scalar fields.
func (d *Definition) Scalar(names ...string) *Definition {
	for _, name := range names {
		d.addField(name, ScalarField)
	}
	return d
}

// Collection declares collection fields.
func (d *Definition) Collection(names ...string) *Definition {
	for _, name := range names {
		d.addField(name, CollectionField)
	}
	return d
}

// Method registers a method. Registering the same name twice is reported by Validate.
func (d *Definition) Method(name string, fn Method) *Definition {
	if _, exists := d.methods[name]; exists && d.err == nil {
		d.err = fmt.Errorf("contract %s: duplicate method %q", d.Name, name)
	}
	if (name == "" || fn == nil) && d.err == nil {
		d.err = fmt.Errorf("contract %s: invalid method %q", d.Name, name)
	}
	d.methods[name] = fn
	return d
}

func (d *Definition) addField(name string, kind FieldKind) {
	if _, exists := d.fields[name]; exists {
		if d.err == nil {
			d.err = fmt.Errorf("contract %s: duplicate field %q", d.Name, name)
		}
		return
	}
	d.fields[name] = FieldDescriptor{Name: name, Kind: kind}
	d.order = append(d.order, name)
}

// Validate reports the first declaration error.
func (d *Definition) Validate() error {
	return d.err
}

// Field looks up a field descriptor.
func (d *Definition) Field(name string) (FieldDescriptor, bool) {
	fd, ok := d.fields[name]
	return fd, ok
}

// Fields returns the descriptors in declaration order.
func (d *Definition) Fields() []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(d.order))
	for _, name := range d.order {
		fields = append(fields, d.fields[name])
	}
	return fields
}

// Lookup returns the method registered under name.
func (d *Definition) Lookup(name string) (Method, bool) {
	m, ok := d.methods[name]
	return m, ok
}

// Methods returns the sorted method names.
func (d *Definition) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LibraryFunc is a function exported by a library.
type LibraryFunc func(ctx Context, args ...any) (any, error)

// Library is shared code a contract depends on. A library is never the
// target of a call; its functions run inside the caller's frame.
type Library struct {
	Name      string
	Address   Address
	functions map[string]LibraryFunc
}

// NewLibrary creates an empty library.
func NewLibrary(name string) *Library {
	return &Library{
		Name:      name,
		functions: make(map[string]LibraryFunc),
	}
}

// Func registers a library function.
func (l *Library) Func(name string, fn LibraryFunc) *Library {
	l.functions[name] = fn
	return l
}

// At returns a copy of the library bound to the account that holds it.
func (l *Library) At(addr Address) *Library {
	return &Library{
		Name:      l.Name,
		Address:   addr,
		functions: l.functions,
	}
}

// Invoke runs fn with the caller's context.
func (l *Library) Invoke(ctx Context, fn string, args ...any) (any, error) {
	f, ok := l.functions[fn]
	if !ok {
		return nil, &MethodNotFoundError{Contract: l.Address, Method: fn}
	}
	return f(ctx, args...)
}

// Functions returns the sorted names of the library functions.
func (l *Library) Functions() []string {
	names := make([]string, 0, len(l.functions))
	for name := range l.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
