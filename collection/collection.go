// Package collection implements nested map fields of bounded depth that are
// persisted as composite keys in an account's field namespace.
//
// A Field keeps a read cache and a pending write buffer. Writes reach the
// store only through Flush, except deletions which are applied at once.
package collection

import (
	"errors"
	"sort"

	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/storage"
)

// Field is one level of a collection.
type Field struct {
	store storage.DataStore
	path  string
	level int
	// held is set once the collection is the value of another collection
	held bool

	readCache   map[string]any
	writeBuffer map[string]any
}

var (
	_ core.Collection = (*Field)(nil)
	_ codec.Container = (*Field)(nil)
)

// New creates an unattached collection. It gets a store and a path when it
// is set as a value of an attached collection.
func New() *Field {
	return &Field{
		level:       1,
		readCache:   make(map[string]any),
		writeBuffer: make(map[string]any),
	}
}

// NewRoot creates the top level collection of a contract field.
func NewRoot(store storage.DataStore, name string) *Field {
	f := New()
	f.store = store
	f.path = name
	return f
}

// Level returns the nesting level, 1 for a root.
func (f *Field) Level() int {
	return f.level
}

// Path returns the composite key of the collection, empty when unattached.
func (f *Field) Path() string {
	return f.path
}

// Attached reports whether the collection is bound to a store location.
func (f *Field) Attached() bool {
	return f.path != ""
}

// Dirty reports whether there are writes waiting for Flush, here or in a
// loaded nested collection.
func (f *Field) Dirty() bool {
	if len(f.writeBuffer) > 0 {
		return true
	}
	for _, v := range f.readCache {
		if child, ok := v.(*Field); ok && child.Dirty() {
			return true
		}
	}
	return false
}

// Children implements codec.Container.
func (f *Field) Children() []any {
	keys := f.memoryKeys()
	children := make([]any, 0, len(keys))
	for _, k := range keys {
		if v, ok := f.writeBuffer[k]; ok {
			children = append(children, v)
		} else {
			children = append(children, f.readCache[k])
		}
	}
	return children
}

func (f *Field) memoryKeys() []string {
	keys := make([]string, 0, len(f.readCache)+len(f.writeBuffer))
	for k := range f.readCache {
		keys = append(keys, k)
	}
	for k := range f.writeBuffer {
		if _, ok := f.readCache[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *Field) childPath(key string) string {
	if f.path == "" {
		return ""
	}
	return codec.JoinKey(f.path, key)
}

// Get returns the value under key, nil when absent.
func (f *Field) Get(key string) (any, error) {
	k, err := codec.ValidateKey(key, codec.MaxEntryKeyLen)
	if err != nil {
		return nil, err
	}
	if v, ok := f.readCache[k]; ok {
		return v, nil
	}
	if f.store == nil {
		return nil, nil
	}

	ck := f.childPath(k)
	raw, err := f.store.Get(ck)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tag, v, err := codec.Decode(raw)
	if err != nil {
		return nil, withKey(err, ck)
	}

	if tag == codec.TagCollection {
		child := &Field{
			store:       f.store,
			path:        ck,
			level:       f.level + 1,
			held:        true,
			readCache:   make(map[string]any),
			writeBuffer: make(map[string]any),
		}
		f.readCache[k] = child
		return child, nil
	}
	f.readCache[k] = v
	return v, nil
}

// Set stores value under key. A nil value deletes the entry.
func (f *Field) Set(key string, value any) error {
	k, err := codec.ValidateKey(key, codec.MaxEntryKeyLen)
	if err != nil {
		return err
	}
	if value == nil {
		return f.Delete(k)
	}

	var v any
	switch x := value.(type) {
	case *Field:
		if x.held || x.Attached() || x.store != nil || x.contains(f) {
			return &core.StateError{Kind: core.ErrCollectionAttached, Key: k}
		}
		if err := codec.Validate(x, f.level+1); err != nil {
			return err
		}
		v = x
	case core.Collection:
		return &core.ValidationError{Kind: core.ErrUnsupportedType, Key: k, Detail: "foreign collection"}
	default:
		n, err := codec.Normalize(value)
		if err != nil {
			return err
		}
		v = n
	}

	// a populated collection can only be emptied, never overwritten
	if err := f.checkRemovable(k); err != nil {
		return err
	}

	if child, ok := v.(*Field); ok {
		child.held = true
		child.attach(f.store, f.childPath(k), f.level+1)
	}
	f.readCache[k] = v
	f.writeBuffer[k] = v
	return nil
}

// contains reports whether target is f or one of its nested collections.
func (f *Field) contains(target *Field) bool {
	if f == target {
		return true
	}
	for _, k := range f.memoryKeys() {
		if child, ok := f.memoryValue(k).(*Field); ok && child.contains(target) {
			return true
		}
	}
	return false
}

func (f *Field) attach(store storage.DataStore, path string, level int) {
	f.store = store
	f.path = path
	f.level = level
	for _, k := range f.memoryKeys() {
		var v any
		if w, ok := f.writeBuffer[k]; ok {
			v = w
		} else {
			v = f.readCache[k]
		}
		if child, ok := v.(*Field); ok {
			child.attach(store, f.childPath(k), level+1)
		}
	}
}

// Delete removes the entry under key. Scalars and empty collections can be
// removed, populated collections can not.
func (f *Field) Delete(key string) error {
	k, err := codec.ValidateKey(key, codec.MaxEntryKeyLen)
	if err != nil {
		return err
	}
	stored, err := f.storedKind(k)
	if err != nil {
		return err
	}
	if err := f.checkRemovable(k); err != nil {
		return err
	}

	delete(f.readCache, k)
	delete(f.writeBuffer, k)
	if stored != absent {
		if err := f.store.Remove(f.childPath(k)); err != nil {
			return err
		}
	}
	return nil
}

type entryKind int

const (
	absent entryKind = iota
	scalarEntry
	collectionEntry
)

func (f *Field) storedKind(k string) (entryKind, error) {
	if f.store == nil || f.path == "" {
		return absent, nil
	}
	ck := f.childPath(k)
	raw, err := f.store.Get(ck)
	if errors.Is(err, core.ErrNotFound) {
		return absent, nil
	}
	if err != nil {
		return absent, err
	}
	tag, _, err := codec.Decode(raw)
	if err != nil {
		return absent, withKey(err, ck)
	}
	if tag == codec.TagCollection {
		return collectionEntry, nil
	}
	return scalarEntry, nil
}

// checkRemovable fails when key holds a populated collection in the read
// cache, the write buffer or the store.
func (f *Field) checkRemovable(k string) error {
	for _, m := range []map[string]any{f.readCache, f.writeBuffer} {
		if child, ok := m[k].(*Field); ok {
			populated, err := child.populated()
			if err != nil {
				return err
			}
			if populated {
				return &core.StateError{Kind: core.ErrCannotRemoveCollection, Key: f.childPath(k)}
			}
		}
	}

	stored, err := f.storedKind(k)
	if err != nil {
		return err
	}
	if stored == collectionEntry {
		populated, err := f.hasStoredChildren(f.childPath(k))
		if err != nil {
			return err
		}
		if populated {
			return &core.StateError{Kind: core.ErrCannotRemoveCollection, Key: f.childPath(k)}
		}
	}
	return nil
}

func (f *Field) populated() (bool, error) {
	if len(f.writeBuffer) > 0 || len(f.readCache) > 0 {
		return true, nil
	}
	if f.store == nil || f.path == "" {
		return false, nil
	}
	return f.hasStoredChildren(f.path)
}

func (f *Field) hasStoredChildren(path string) (bool, error) {
	it := f.store.Scan(path + codec.Separator)
	defer it.Release()
	if it.Next() {
		return true, nil
	}
	return false, it.Error()
}

// Flush writes the pending writes under prefix and clears the write buffer.
// Nested collections set here write their marker and are flushed
// recursively; loaded ones already have a marker and only flush their own
// pending writes.
func (f *Field) Flush(prefix string) error {
	if !f.Dirty() {
		return nil
	}
	if f.store == nil {
		return errors.New("flush of an unattached collection")
	}

	keys := make([]string, 0, len(f.writeBuffer))
	for k := range f.writeBuffer {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ck := codec.JoinKey(prefix, k)
		switch v := f.writeBuffer[k].(type) {
		case *Field:
			marker, err := codec.Encode(codec.TagCollection, nil)
			if err != nil {
				return err
			}
			if err := f.store.Put(ck, marker); err != nil {
				return err
			}
			if err := v.Flush(ck); err != nil {
				return err
			}
		default:
			data, err := codec.Encode(codec.TagScalar, v)
			if err != nil {
				return err
			}
			if err := f.store.Put(ck, data); err != nil {
				return err
			}
		}
	}

	for _, k := range f.memoryKeys() {
		if _, ok := f.writeBuffer[k]; ok {
			continue
		}
		if child, ok := f.readCache[k].(*Field); ok {
			if err := child.Flush(codec.JoinKey(prefix, k)); err != nil {
				return err
			}
		}
	}

	f.writeBuffer = make(map[string]any)
	return nil
}

func withKey(err error, key string) error {
	var ce *core.CorruptEncodingError
	if errors.As(err, &ce) {
		ce.Key = key
	}
	return err
}
