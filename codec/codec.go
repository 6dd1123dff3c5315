// Package codec serializes persisted field values and validates keys.
//
// A stored entry is either the single byte '0', marking a nested collection,
// or the byte '1' followed by the JSON encoding of a scalar.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/govm-net/vmstore/core"
)

const (
	// Separator joins field names and nested keys into composite keys
	Separator = "@"
	// MaxFieldKeyLen bounds contract field names, in bytes
	MaxFieldKeyLen = 32
	// MaxEntryKeyLen bounds collection entry keys, in bytes
	MaxEntryKeyLen = 45
	// MaxNesting is the deepest collection level, the top field being level 1
	MaxNesting = 5
)

// Tag identifies the kind of a stored entry.
type Tag byte

const (
	TagCollection Tag = 0
	TagScalar     Tag = 1
)

const (
	collectionByte = '0'
	scalarByte     = '1'
)

// Container is implemented by nested collection values.
// Children returns the values currently held in memory.
type Container interface {
	Children() []any
}

// Encode serializes a value with its tag.
func Encode(tag Tag, value any) ([]byte, error) {
	switch tag {
	case TagCollection:
		return []byte{collectionByte}, nil
	case TagScalar:
		v, err := Normalize(value)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode scalar: %w", err)
		}
		return append([]byte{scalarByte}, data...), nil
	default:
		return nil, fmt.Errorf("unknown tag %d", tag)
	}
}

// Decode is the inverse of Encode. JSON numbers decode to int64.
func Decode(b []byte) (Tag, any, error) {
	if len(b) == 0 {
		return 0, nil, &core.CorruptEncodingError{Data: b, Reason: "empty value"}
	}
	switch b[0] {
	case collectionByte:
		if len(b) != 1 {
			return 0, nil, &core.CorruptEncodingError{Data: b, Reason: "trailing bytes after collection marker"}
		}
		return TagCollection, nil, nil
	case scalarByte:
		v, err := decodeScalar(b[1:])
		if err != nil {
			return 0, nil, &core.CorruptEncodingError{Data: b, Reason: err.Error()}
		}
		return TagScalar, v, nil
	default:
		return 0, nil, &core.CorruptEncodingError{Data: b, Reason: fmt.Sprintf("unknown tag byte %q", b[0])}
	}
}

func decodeScalar(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data")
	}

	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("not an integer: %s", x)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", v)
	}
}

// Normalize returns the canonical form of a scalar: int64, bool, string or nil.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, string:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, unsupported(value, "integer out of range")
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, unsupported(value, "integer out of range")
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, unsupported(value, "not an integer")
		}
		return n, nil
	default:
		return nil, unsupported(value, "")
	}
}

func unsupported(value any, detail string) error {
	typ := "nil"
	if value != nil {
		typ = reflect.TypeOf(value).String()
	}
	if detail != "" {
		typ += ", " + detail
	}
	return &core.ValidationError{Kind: core.ErrUnsupportedType, Detail: typ}
}

// Validate checks that value may be stored at the given collection depth.
// Nested collections are checked recursively one level deeper.
func Validate(value any, depth int) error {
	if c, ok := value.(Container); ok {
		if depth > MaxNesting {
			return &core.ValidationError{
				Kind:   core.ErrNestingTooDeep,
				Detail: fmt.Sprintf("depth %d exceeds %d", depth, MaxNesting),
			}
		}
		for _, child := range c.Children() {
			if err := Validate(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := Normalize(value)
	return err
}

// Height returns the number of collection levels held by value, 0 for scalars.
func Height(value any) int {
	c, ok := value.(Container)
	if !ok {
		return 0
	}
	h := 0
	for _, child := range c.Children() {
		if ch := Height(child); ch > h {
			h = ch
		}
	}
	return h + 1
}

// ValidateKey checks a key and returns it unchanged. The length limit
// applies to the key's own UTF-8 bytes. Keys not in NFC form are rejected
// so that canonically equivalent spellings can not name two slots.
func ValidateKey(key any, maxLen int) (string, error) {
	s, ok := key.(string)
	if !ok {
		return "", &core.ValidationError{Kind: core.ErrInvalidKeyType, Detail: fmt.Sprintf("%T", key)}
	}
	if len(s) > maxLen {
		return "", &core.ValidationError{
			Kind:   core.ErrKeyTooLong,
			Key:    s,
			Detail: fmt.Sprintf("%d bytes, max %d", len(s), maxLen),
		}
	}
	if s == "" {
		return "", &core.ValidationError{Kind: core.ErrInvalidKey, Detail: "empty key"}
	}
	if strings.Contains(s, Separator) {
		return "", &core.ValidationError{Kind: core.ErrInvalidKey, Key: s, Detail: "contains " + Separator}
	}
	if !norm.NFC.IsNormalString(s) {
		return "", &core.ValidationError{Kind: core.ErrInvalidKey, Key: s, Detail: "not in NFC form"}
	}
	return s, nil
}

// JoinKey builds a composite key.
func JoinKey(parts ...string) string {
	return strings.Join(parts, Separator)
}
