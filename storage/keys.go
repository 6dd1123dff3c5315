package storage

import (
	"github.com/govm-net/vmstore/core"
)

const (
	accountPrefix byte = 'a'
	dataPrefix    byte = 'd'
	metaPrefix    byte = 'm'
)

// AccountKey generates the key of an account record.
// Format: 'a' + address
func AccountKey(addr core.Address) []byte {
	return append([]byte{accountPrefix}, addr[:]...)
}

// DataPrefix generates the prefix of every field entry of an account.
// Format: 'd' + address
func DataPrefix(addr core.Address) []byte {
	return append([]byte{dataPrefix}, addr[:]...)
}

// DataKey generates the key of a field entry.
// Format: 'd' + address + composite key
func DataKey(addr core.Address, key string) []byte {
	return append(DataPrefix(addr), key...)
}

// MetaKey generates the key of an engine metadata value.
// Format: 'm' + name
func MetaKey(name string) []byte {
	return append([]byte{metaPrefix}, name...)
}

// AddressFromKey extracts the account address from an account or data key.
func AddressFromKey(key []byte) core.Address {
	var addr core.Address
	if len(key) < 1+len(addr) {
		return addr
	}
	copy(addr[:], key[1:1+len(addr)])
	return addr
}

// PrefixRange returns key range that corresponds to the given prefix.
// It returns start (inclusive) and end (exclusive) keys for iteration.
// A nil end means there is no upper bound.
func PrefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}

	end := clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	// all bytes are 0xff
	return prefix, nil
}
