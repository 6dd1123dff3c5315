package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Address represents an account address
type Address [20]byte

// ZeroAddress is the address with all bytes set to zero
var ZeroAddress = Address{}

// String returns the 0x prefixed hex form of the address
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ParseAddress converts a hex string, with or without 0x prefix, to an Address
func ParseAddress(s string) (Address, error) {
	var addr Address

	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 40 {
		return addr, fmt.Errorf("invalid address length %d", len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("invalid address: %w", err)
	}
	copy(addr[:], b)
	return addr, nil
}

// AddressFromString converts a hex string to an Address, the zero address on error
func AddressFromString(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		return ZeroAddress
	}
	return addr
}

// Hash calculates the SHA-256 hash of data
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Require panics when condition is false or a non-nil error.
// The engine recovers the panic and aborts the current frame.
func Require(condition any, msg ...any) {
	switch v := condition.(type) {
	case bool:
		if !v {
			if len(msg) > 0 {
				panic(fmt.Errorf("%w: %s", ErrRequireFailed, fmt.Sprint(msg...)))
			}
			panic(ErrRequireFailed)
		}
	case error:
		if v != nil {
			panic(v)
		}
	}
}
