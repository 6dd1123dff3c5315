package collection

import (
	"sort"

	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/storage"
)

// Iterator walks the leaves of a collection: the persisted ones in key
// order, then the ones only held in memory, also in key order. A value held
// in memory wins over the persisted one under the same key.
type Iterator struct {
	stored storage.KeyIterator
	prefix string

	memory     map[string]any
	containers map[string]struct{}
	rest       []string
	listed     bool

	key   string
	value any
	err   error
	done  bool
}

var _ core.Iterator = (*Iterator)(nil)

// Iterator returns the leaves under the optional sub path. Keys are relative
// to the iterated node, deeper leaves use composite keys such as "x11@y".
func (f *Field) Iterator(path ...string) core.Iterator {
	it := &Iterator{
		memory:     make(map[string]any),
		containers: make(map[string]struct{}),
	}

	node := f
	keys := make([]string, 0, len(path)+1)
	keys = append(keys, f.path)
	for _, p := range path {
		k, err := codec.ValidateKey(p, codec.MaxEntryKeyLen)
		if err != nil {
			it.err = err
			it.done = true
			return it
		}
		keys = append(keys, k)
		if node == nil {
			continue
		}
		next, _ := node.memoryValue(k).(*Field)
		node = next
	}
	if node != nil {
		node.collectMemory("", it.memory, it.containers)
	}

	if f.store != nil && f.path != "" {
		it.prefix = codec.JoinKey(keys...) + codec.Separator
		it.stored = f.store.Scan(it.prefix)
	}
	return it
}

func (f *Field) memoryValue(k string) any {
	if v, ok := f.writeBuffer[k]; ok {
		return v
	}
	return f.readCache[k]
}

// collectMemory gathers the pending scalar writes below f.
func (f *Field) collectMemory(prefix string, leaves map[string]any, containers map[string]struct{}) {
	for _, k := range f.memoryKeys() {
		rel := k
		if prefix != "" {
			rel = codec.JoinKey(prefix, k)
		}
		switch v := f.memoryValue(k).(type) {
		case *Field:
			containers[rel] = struct{}{}
			v.collectMemory(rel, leaves, containers)
		default:
			if w, ok := f.writeBuffer[k]; ok {
				leaves[rel] = w
			}
		}
	}
}

// Next advances the iterator.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}

	for it.stored != nil && it.stored.Next() {
		rel := it.stored.Key()[len(it.prefix):]
		if v, ok := it.memory[rel]; ok {
			delete(it.memory, rel)
			it.key, it.value = rel, v
			return true
		}
		if _, ok := it.containers[rel]; ok {
			continue
		}
		tag, v, err := codec.Decode(it.stored.Value())
		if err != nil {
			it.err = withKey(err, it.stored.Key())
			it.finish()
			return false
		}
		if tag == codec.TagCollection {
			continue
		}
		it.key, it.value = rel, v
		return true
	}

	if it.stored != nil {
		if err := it.stored.Error(); err != nil {
			it.err = err
			it.finish()
			return false
		}
		it.stored.Release()
		it.stored = nil
	}
	if !it.listed {
		it.listed = true
		it.rest = make([]string, 0, len(it.memory))
		for k := range it.memory {
			it.rest = append(it.rest, k)
		}
		sort.Strings(it.rest)
	}

	if len(it.rest) == 0 {
		it.finish()
		return false
	}
	it.key = it.rest[0]
	it.value = it.memory[it.key]
	it.rest = it.rest[1:]
	return true
}

// Key returns the current relative key.
func (it *Iterator) Key() string { return it.key }

// Value returns the current value.
func (it *Iterator) Value() any { return it.value }

// Error returns the error that stopped the iteration, if any.
func (it *Iterator) Error() error { return it.err }

// Release frees the underlying store iterator.
func (it *Iterator) Release() {
	it.finish()
}

func (it *Iterator) finish() {
	it.done = true
	if it.stored != nil {
		it.stored.Release()
		it.stored = nil
	}
	it.key, it.value = "", nil
}
