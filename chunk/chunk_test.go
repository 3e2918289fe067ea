package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkRefCounting(t *testing.T) {
	var freed bool
	c := New([]byte("hello"), func(b []byte) { freed = true })
	require.Equal(t, int32(1), c.RefCount())
	require.Equal(t, "hello", string(c.Bytes()))

	c.AddRef()
	require.Equal(t, int32(2), c.RefCount())
	require.False(t, freed)

	c.Release()
	require.False(t, freed)

	c.Release()
	require.True(t, freed)
}

func TestChunkReleaseTooMany(t *testing.T) {
	c := New([]byte("x"), nil)
	c.Release()
	require.Panics(t, func() { c.Release() })
}

func TestChunkNilSafe(t *testing.T) {
	var c *Chunk
	require.Nil(t, c.Bytes())
	require.Equal(t, 0, c.Len())
	require.Nil(t, c.Tag())
	require.Equal(t, int32(0), c.RefCount())
	c.Release() // must not panic
}

func TestChunkTag(t *testing.T) {
	c := NewWithTag([]byte("x"), nil, 42)
	require.Equal(t, 42, c.Tag())
}
