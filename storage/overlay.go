package storage

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

type overlayEntry struct {
	value   []byte
	deleted bool
}

// Overlay is a write set over a parent store. Reads fall through to the
// parent unless the key was written or deleted in the overlay.
//
// Overlays nest: a call frame runs over an overlay of its caller's overlay,
// so committing a nested frame only publishes its writes to the caller.
type Overlay struct {
	parent Store
	writes map[string]overlayEntry
}

// NewOverlay creates an empty overlay over parent.
func NewOverlay(parent Store) *Overlay {
	return &Overlay{
		parent: parent,
		writes: make(map[string]overlayEntry),
	}
}

// Parent returns the store the overlay commits into.
func (o *Overlay) Parent() Store {
	return o.parent
}

// Get implements Reader.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if e, ok := o.writes[string(key)]; ok {
		if e.deleted {
			return nil, ErrNotFound
		}
		return clone(e.value), nil
	}
	return o.parent.Get(key)
}

// Put implements Writer.
func (o *Overlay) Put(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	o.writes[string(key)] = overlayEntry{value: clone(value)}
	return nil
}

// Delete implements Writer.
func (o *Overlay) Delete(key []byte) error {
	o.writes[string(key)] = overlayEntry{deleted: true}
	return nil
}

// Len returns the number of pending writes, deletions included.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// NewIterator merges the pending writes over the parent's entries.
// Pending writes are captured when the iterator is created.
func (o *Overlay) NewIterator(prefix []byte) Iterator {
	local := make([]kv, 0)
	p := string(prefix)
	for k, e := range o.writes {
		if strings.HasPrefix(k, p) {
			local = append(local, kv{key: []byte(k), value: clone(e.value), deleted: e.deleted})
		}
	}
	sort.Slice(local, func(i, j int) bool { return bytes.Compare(local[i].key, local[j].key) < 0 })

	return &mergeIterator{
		parent: o.parent.NewIterator(prefix),
		local:  local,
	}
}

// Commit publishes the pending writes to the parent and empties the overlay.
// A Backend parent receives them as one atomic batch.
func (o *Overlay) Commit() error {
	if len(o.writes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch parent := o.parent.(type) {
	case *Overlay:
		for _, k := range keys {
			parent.writes[k] = o.writes[k]
		}
	case Backend:
		batch := new(Batch)
		for _, k := range keys {
			e := o.writes[k]
			if e.deleted {
				batch.Delete([]byte(k))
			} else {
				batch.Put([]byte(k), e.value)
			}
		}
		if err := parent.Write(batch); err != nil {
			return fmt.Errorf("commit overlay: %w", err)
		}
	default:
		for _, k := range keys {
			e := o.writes[k]
			var err error
			if e.deleted {
				err = parent.Delete([]byte(k))
			} else {
				err = parent.Put([]byte(k), e.value)
			}
			if err != nil {
				return fmt.Errorf("commit overlay: %w", err)
			}
		}
	}

	o.writes = make(map[string]overlayEntry)
	return nil
}

// Discard drops the pending writes.
func (o *Overlay) Discard() {
	o.writes = make(map[string]overlayEntry)
}

type kv struct {
	key     []byte
	value   []byte
	deleted bool
}

type mergeIterator struct {
	parent   Iterator
	parentOK bool
	started  bool

	local []kv
	pos   int

	key, value []byte
	err        error
	released   bool
}

func (it *mergeIterator) Next() bool {
	if it.released || it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		it.advanceParent()
		if it.err != nil {
			return false
		}
	}

	for {
		localOK := it.pos < len(it.local)
		switch {
		case !localOK && !it.parentOK:
			it.key, it.value = nil, nil
			return false

		case localOK && (!it.parentOK || bytes.Compare(it.local[it.pos].key, it.parent.Key()) <= 0):
			e := it.local[it.pos]
			it.pos++
			if it.parentOK && bytes.Equal(e.key, it.parent.Key()) {
				it.advanceParent()
			}
			if it.err != nil {
				return false
			}
			if e.deleted {
				continue
			}
			it.key, it.value = e.key, e.value
			return true

		default:
			it.key = clone(it.parent.Key())
			it.value = clone(it.parent.Value())
			it.advanceParent()
			return true
		}
	}
}

func (it *mergeIterator) advanceParent() {
	it.parentOK = it.parent.Next()
	if !it.parentOK {
		if err := it.parent.Error(); err != nil {
			it.err = err
		}
	}
}

func (it *mergeIterator) Key() []byte   { return it.key }
func (it *mergeIterator) Value() []byte { return it.value }

func (it *mergeIterator) Error() error { return it.err }

func (it *mergeIterator) Release() {
	if it.released {
		return
	}
	it.released = true
	it.parent.Release()
	it.local = nil
	it.key, it.value = nil, nil
}
