package vm

import (
	"errors"

	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/storage"
)

// frameData 是帧内集合使用的字段存储。读到无法解码的数据时记录在帧上，
// 即使合约代码忽略了错误，帧也会中止
type frameData struct {
	frame *frame
	data  storage.DataStore
}

func (d *frameData) Get(key string) ([]byte, error) {
	raw, err := d.data.Get(key)
	if err != nil {
		return nil, err
	}
	if _, _, err := codec.Decode(raw); err != nil {
		return nil, d.frame.corrupt(withKey(err, key))
	}
	return raw, nil
}

func (d *frameData) Put(key string, value []byte) error {
	return d.data.Put(key, value)
}

func (d *frameData) Remove(key string) error {
	return d.data.Remove(key)
}

func (d *frameData) Scan(prefix string) storage.KeyIterator {
	return &frameIterator{KeyIterator: d.data.Scan(prefix), frame: d.frame}
}

type frameIterator struct {
	storage.KeyIterator
	frame *frame
	err   error
}

func (it *frameIterator) Next() bool {
	if it.err != nil || !it.KeyIterator.Next() {
		return false
	}
	if _, _, err := codec.Decode(it.Value()); err != nil {
		it.err = it.frame.corrupt(withKey(err, it.Key()))
		return false
	}
	return true
}

func (it *frameIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.KeyIterator.Error()
}

// corrupt 记录第一个编码损坏错误，其他错误原样返回
func (f *frame) corrupt(err error) error {
	if f.fault == nil && errors.Is(err, core.ErrCorruptEncoding) {
		f.fault = err
	}
	return err
}
