package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/vmstore/storage"
	"github.com/govm-net/vmstore/storage/memory"
)

func TestOverlayReadThrough(t *testing.T) {
	base := memory.New()
	require.NoError(t, base.Put([]byte("a"), []byte("1")))
	require.NoError(t, base.Put([]byte("b"), []byte("2")))

	o := storage.NewOverlay(base)
	v, err := o.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, o.Put([]byte("a"), []byte("10")))
	require.NoError(t, o.Delete([]byte("b")))

	v, err = o.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("10"), v)
	_, err = o.Get([]byte("b"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// the parent is untouched until commit
	v, err = base.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestOverlayMergedIteration(t *testing.T) {
	base := memory.New()
	for _, k := range []string{"p1", "p3", "p5", "q"} {
		require.NoError(t, base.Put([]byte(k), []byte("base")))
	}

	o := storage.NewOverlay(base)
	require.NoError(t, o.Put([]byte("p2"), []byte("new")))
	require.NoError(t, o.Put([]byte("p3"), []byte("over")))
	require.NoError(t, o.Delete([]byte("p5")))
	require.NoError(t, o.Put([]byte("p6"), []byte("new")))

	assert.Equal(t, []string{"p1=base", "p2=new", "p3=over", "p6=new"}, collect(t, o.NewIterator([]byte("p"))))
}

func TestOverlayCommitAndDiscard(t *testing.T) {
	base := memory.New()
	require.NoError(t, base.Put([]byte("keep"), []byte("1")))
	require.NoError(t, base.Put([]byte("drop"), []byte("1")))

	o := storage.NewOverlay(base)
	require.NoError(t, o.Put([]byte("keep"), []byte("2")))
	require.NoError(t, o.Delete([]byte("drop")))
	require.NoError(t, o.Commit())
	assert.Equal(t, 0, o.Len())

	v, err := base.Get([]byte("keep"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	_, err = base.Get([]byte("drop"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, o.Put([]byte("keep"), []byte("3")))
	o.Discard()
	v, err = o.Get([]byte("keep"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestNestedOverlays(t *testing.T) {
	base := memory.New()
	parent := storage.NewOverlay(base)
	require.NoError(t, parent.Put([]byte("x"), []byte("parent")))

	child := storage.NewOverlay(parent)
	v, err := child.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("parent"), v)

	require.NoError(t, child.Put([]byte("y"), []byte("child")))
	require.NoError(t, child.Delete([]byte("x")))

	// aborted child leaves the parent as it was
	child.Discard()
	v, err = parent.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("parent"), v)

	require.NoError(t, child.Put([]byte("y"), []byte("child")))
	require.NoError(t, child.Commit())
	v, err = parent.Get([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, []byte("child"), v)

	// nothing reaches the backend before the outermost commit
	_, err = base.Get([]byte("y"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, parent.Commit())
	assert.Equal(t, 2, base.Len())
}
