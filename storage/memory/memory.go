// Package memory provides an in-memory backend ordered by key.
package memory

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/govm-net/vmstore/storage"
)

const defaultCapacity = 4 * 1024

func init() {
	storage.Register(storage.MemoryBackend, func(params map[string]any) (storage.Backend, error) {
		return New(), nil
	})
}

// Backend keeps entries in a goleveldb memdb skiplist.
type Backend struct {
	mu sync.RWMutex
	db *memdb.DB
}

// New creates an empty memory backend.
func New() *Backend {
	return &Backend{db: memdb.New(comparer.DefaultComparer, defaultCapacity)}
}

func (b *Backend) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, err := b.db.Get(key)
	if errors.Is(err, memdb.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (b *Backend) Put(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Put(key, value)
}

func (b *Backend) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Delete(key)
	if errors.Is(err, memdb.ErrNotFound) {
		return nil
	}
	return err
}

// NewIterator returns a snapshot-free iterator over the keys starting with prefix.
func (b *Backend) NewIterator(prefix []byte) storage.Iterator {
	var slice *util.Range
	if len(prefix) > 0 {
		slice = util.BytesPrefix(prefix)
	}
	return b.db.NewIterator(slice)
}

func (b *Backend) Write(batch *storage.Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return batch.Replay(func(key, value []byte, deleted bool) error {
		if deleted {
			if err := b.db.Delete(key); err != nil && !errors.Is(err, memdb.ErrNotFound) {
				return err
			}
			return nil
		}
		return b.db.Put(key, value)
	})
}

// Len returns the number of entries.
func (b *Backend) Len() int {
	return b.db.Len()
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.db.Reset()
	return nil
}
