// Package leveldb provides a persistent backend on goleveldb.
package leveldb

import (
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/govm-net/vmstore/storage"
)

const defaultPath = "./vmstore-data"

func init() {
	storage.Register(storage.LevelDBBackend, func(params map[string]any) (storage.Backend, error) {
		path := defaultPath
		if p, ok := params["path"].(string); ok && p != "" {
			path = p
		}
		return Open(path)
	})
}

// Backend stores entries in a leveldb database.
type Backend struct {
	db   *leveldb.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Backend, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create leveldb directory: %w", err)
	}
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb %s: %w", path, err)
	}
	return &Backend{db: db, path: path}, nil
}

func (b *Backend) Get(key []byte) ([]byte, error) {
	value, err := b.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	return value, err
}

func (b *Backend) Put(key, value []byte) error {
	return b.db.Put(key, value, nil)
}

func (b *Backend) Delete(key []byte) error {
	return b.db.Delete(key, nil)
}

func (b *Backend) NewIterator(prefix []byte) storage.Iterator {
	var slice *util.Range
	if len(prefix) > 0 {
		slice = util.BytesPrefix(prefix)
	}
	return b.db.NewIterator(slice, nil)
}

func (b *Backend) Write(batch *storage.Batch) error {
	lb := new(leveldb.Batch)
	_ = batch.Replay(func(key, value []byte, deleted bool) error {
		if deleted {
			lb.Delete(key)
		} else {
			lb.Put(key, value)
		}
		return nil
	})
	return b.db.Write(lb, &opt.WriteOptions{Sync: true})
}

// Path returns the database directory.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Close() error {
	return b.db.Close()
}
