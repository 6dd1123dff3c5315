// Package db provides a persistent backend on a sqlite database through gorm.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/govm-net/vmstore/storage"
)

const (
	defaultDBPath = "./sqlite.db"
	pageSize      = 256
)

func init() {
	storage.Register(storage.DBBackend, func(params map[string]any) (storage.Backend, error) {
		dbPath := defaultDBPath
		if path, ok := params["db_path"].(string); ok && path != "" {
			dbPath = path
		}
		return Open(dbPath)
	})
}

// DBEntry is one key/value row
type DBEntry struct {
	Key   []byte `gorm:"column:entry_key;primaryKey;type:blob"`
	Value []byte `gorm:"column:entry_value;type:blob;not null"`
}

// TableName specifies the table name for DBEntry
func (DBEntry) TableName() string {
	return "kv_entries"
}

// Backend implements storage.Backend on a single sqlite table
type Backend struct {
	db *gorm.DB
}

// Open opens or creates the sqlite database at dbPath
func Open(dbPath string) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&DBEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(key []byte) ([]byte, error) {
	var entry DBEntry
	err := b.db.Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (b *Backend) Put(key, value []byte) error {
	return put(b.db, key, value)
}

func (b *Backend) Delete(key []byte) error {
	return b.db.Where("entry_key = ?", key).Delete(&DBEntry{}).Error
}

func put(tx *gorm.DB, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value"}),
	}).Create(&DBEntry{Key: key, Value: value}).Error
}

func (b *Backend) Write(batch *storage.Batch) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		return batch.Replay(func(key, value []byte, deleted bool) error {
			if deleted {
				return tx.Where("entry_key = ?", key).Delete(&DBEntry{}).Error
			}
			return put(tx, key, value)
		})
	})
}

// NewIterator pages through the key range of prefix. It holds no cursor
// between pages, so writes may interleave with iteration.
func (b *Backend) NewIterator(prefix []byte) storage.Iterator {
	start, end := storage.PrefixRange(prefix)
	return &iterator{db: b.db, start: start, end: end}
}

func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type iterator struct {
	db    *gorm.DB
	start []byte
	end   []byte

	page []DBEntry
	pos  int
	last []byte
	done bool
	err  error
}

func (it *iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.pos+1 < len(it.page) {
		it.pos++
		return true
	}
	if it.done {
		it.page = nil
		return false
	}

	query := it.db.Model(&DBEntry{})
	if it.last != nil {
		query = query.Where("entry_key > ?", it.last)
	} else if it.start != nil {
		query = query.Where("entry_key >= ?", it.start)
	}
	if it.end != nil {
		query = query.Where("entry_key < ?", it.end)
	}

	var page []DBEntry
	if err := query.Order("entry_key").Limit(pageSize).Find(&page).Error; err != nil {
		it.err = err
		return false
	}
	if len(page) < pageSize {
		it.done = true
	}
	if len(page) == 0 {
		it.page = nil
		return false
	}
	it.page = page
	it.pos = 0
	it.last = page[len(page)-1].Key
	return true
}

func (it *iterator) Key() []byte {
	if it.pos < len(it.page) {
		return it.page[it.pos].Key
	}
	return nil
}

func (it *iterator) Value() []byte {
	if it.pos < len(it.page) {
		return it.page[it.pos].Value
	}
	return nil
}

func (it *iterator) Error() error { return it.err }

func (it *iterator) Release() {
	it.page = nil
	it.done = true
}
