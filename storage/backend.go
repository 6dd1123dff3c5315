// Package storage provides the flat key/value backends, the transactional
// overlay used by call frames and the account level state operations.
package storage

import (
	"github.com/govm-net/vmstore/core"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = core.ErrNotFound

// Iterator walks key/value pairs in key order.
// Key and Value are only valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Reader reads from a store.
type Reader interface {
	Get(key []byte) ([]byte, error)
	// NewIterator returns the entries whose key starts with prefix
	NewIterator(prefix []byte) Iterator
}

// Writer writes to a store. Deleting an absent key is not an error.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Store is a readable and writable key/value store.
type Store interface {
	Reader
	Writer
}

// Backend is a durable store.
type Backend interface {
	Store
	// Write applies a batch atomically
	Write(b *Batch) error
	Close() error
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch collects writes applied together by Backend.Write.
type Batch struct {
	ops []batchOp
}

// Put records a write.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: clone(key), value: clone(value)})
}

// Delete records a removal.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: clone(key), delete: true})
}

// Len returns the number of recorded operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Reset drops all recorded operations.
func (b *Batch) Reset() {
	b.ops = b.ops[:0]
}

// Replay calls fn for every operation in record order.
func (b *Batch) Replay(fn func(key, value []byte, deleted bool) error) error {
	for _, op := range b.ops {
		if err := fn(op.key, op.value, op.delete); err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
