package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/core"
)

type box struct {
	children []any
}

func (b box) Children() []any { return b.children }

func nested(levels int) box {
	b := box{children: []any{int64(1)}}
	for i := 1; i < levels; i++ {
		b = box{children: []any{b}}
	}
	return b
}

func TestEncodeDecodeScalars(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
		data  string
	}{
		{"int", 100, int64(100), "1100"},
		{"negative", int64(-7), int64(-7), "1-7"},
		{"uint32", uint32(9), int64(9), "19"},
		{"true", true, true, "1true"},
		{"false", false, false, "1false"},
		{"string", "hello", "hello", `1"hello"`},
		{"empty string", "", "", `1""`},
		{"null", nil, nil, "1null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(TagScalar, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(data))

			tag, v, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, TagScalar, tag)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEncodeCollectionMarker(t *testing.T) {
	data, err := Encode(TagCollection, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), data)

	tag, v, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TagCollection, tag)
	assert.Nil(t, v)
}

func TestDecodeCorrupt(t *testing.T) {
	for _, data := range []string{"", "2", "x1", "1", "1{", "1[1,2]", `1{"a":1}`, "11.5", "01", "1 1 2"} {
		_, _, err := Decode([]byte(data))
		assert.ErrorIs(t, err, core.ErrCorruptEncoding, "data %q", data)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	for _, v := range []any{1.5, []int{1}, map[string]any{}, struct{}{}, uint64(1 << 63)} {
		_, err := Encode(TagScalar, v)
		assert.ErrorIs(t, err, core.ErrUnsupportedType, "value %#v", v)
	}
}

func TestValidateDepth(t *testing.T) {
	require.NoError(t, Validate(nested(5), 1))

	err := Validate(nested(6), 1)
	assert.ErrorIs(t, err, core.ErrNestingTooDeep)

	// the child of a level 3 collection may be two levels high, not three
	require.NoError(t, Validate(nested(2), 4))
	assert.ErrorIs(t, Validate(nested(3), 4), core.ErrNestingTooDeep)

	assert.ErrorIs(t, Validate(box{children: []any{3.14}}, 1), core.ErrUnsupportedType)
	assert.NoError(t, Validate("scalar", 1))
}

func TestHeight(t *testing.T) {
	assert.Equal(t, 0, Height(int64(1)))
	assert.Equal(t, 1, Height(box{}))
	assert.Equal(t, 3, Height(nested(3)))
}

func TestValidateKey(t *testing.T) {
	key, err := ValidateKey(strings.Repeat("a", MaxFieldKeyLen), MaxFieldKeyLen)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = ValidateKey(strings.Repeat("a", MaxFieldKeyLen+1), MaxFieldKeyLen)
	assert.ErrorIs(t, err, core.ErrKeyTooLong)

	_, err = ValidateKey(strings.Repeat("b", MaxEntryKeyLen), MaxEntryKeyLen)
	require.NoError(t, err)

	_, err = ValidateKey(strings.Repeat("b", MaxEntryKeyLen+1), MaxEntryKeyLen)
	assert.ErrorIs(t, err, core.ErrKeyTooLong)

	_, err = ValidateKey(12, MaxEntryKeyLen)
	assert.ErrorIs(t, err, core.ErrInvalidKeyType)

	_, err = ValidateKey("", MaxEntryKeyLen)
	assert.ErrorIs(t, err, core.ErrInvalidKey)

	_, err = ValidateKey("a@b", MaxEntryKeyLen)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestValidateKeyNFC(t *testing.T) {
	key, err := ValidateKey("caf\u00e9", MaxEntryKeyLen)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", key)

	_, err = ValidateKey("cafe\u0301", MaxEntryKeyLen)
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestValidateKeyMeasuresRawBytes(t *testing.T) {
	// U+0958 is 3 bytes and is excluded from composition, so NFC would
	// decompose it to 6 bytes
	key := strings.Repeat("\u0958", 10)
	require.Len(t, key, 30)

	_, err := ValidateKey(key, MaxFieldKeyLen)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrKeyTooLong)
	assert.ErrorIs(t, err, core.ErrInvalidKey)

	// a key that is already normal is returned byte for byte
	key = strings.Repeat("\u00e9", 16)
	got, err := ValidateKey(key, MaxFieldKeyLen)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ValidateKey(key+"a", MaxFieldKeyLen)
	assert.ErrorIs(t, err, core.ErrKeyTooLong)
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "a@x1@x11", JoinKey("a", "x1", "x11"))
	assert.Equal(t, "a", JoinKey("a"))
}
