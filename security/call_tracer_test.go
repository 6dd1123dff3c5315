package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/core"
)

func addr(b byte) core.Address {
	var a core.Address
	a[19] = b
	return a
}

func TestCallTracerDepth(t *testing.T) {
	tracer := NewCallTracer(3)
	require.NoError(t, tracer.BeginCall(addr(0), addr(1), "a"))
	require.NoError(t, tracer.BeginCall(addr(1), addr(2), "b"))
	require.NoError(t, tracer.BeginCall(addr(2), addr(3), "c"))
	assert.Equal(t, 3, tracer.Depth())

	err := tracer.BeginCall(addr(3), addr(4), "d")
	assert.ErrorIs(t, err, core.ErrCallDepthExceeded)
	assert.Equal(t, 3, tracer.Depth())

	frame, ok := tracer.EndCall()
	require.True(t, ok)
	assert.Equal(t, "c", frame.Method)
	require.NoError(t, tracer.BeginCall(addr(3), addr(4), "d"))
}

func TestCallTracerReentrancy(t *testing.T) {
	tracer := NewCallTracer(0)
	assert.Equal(t, DefaultMaxCallDepth, tracer.MaxDepth())

	require.NoError(t, tracer.BeginCall(addr(0), addr(1), "a"))
	require.NoError(t, tracer.BeginCall(addr(1), addr(2), "b"))

	err := tracer.BeginCall(addr(2), addr(1), "a")
	assert.ErrorIs(t, err, core.ErrReentrantCall)

	stack := tracer.Stack()
	require.Len(t, stack, 2)
	assert.Equal(t, addr(1), stack[0].Contract)

	tracer.EndCall()
	tracer.EndCall()
	_, ok := tracer.EndCall()
	assert.False(t, ok)
	assert.False(t, tracer.Contains(addr(1)))
}
