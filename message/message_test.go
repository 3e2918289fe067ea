package message

import (
	"testing"

	"github.com/joeycumines/scalesock/chunk"
	"github.com/stretchr/testify/require"
)

func TestNewAndBody(t *testing.T) {
	m := New([]byte("hdr"), []byte("body"))
	require.Equal(t, []byte("hdr"), m.Header)
	require.Equal(t, []byte("body"), m.Body())
	require.Equal(t, 7, m.Len())
	m.Release()
}

func TestFromChunkSharesBody(t *testing.T) {
	var freed bool
	c := chunk.New([]byte("shared"), func(b []byte) { freed = true })
	defer c.Release()

	a := FromChunk([]byte("a"), c)
	b := FromChunk([]byte("b"), c)

	require.Equal(t, "shared", string(a.Body()))
	require.Equal(t, "shared", string(b.Body()))

	a.Release()
	require.False(t, freed)
	b.Release()
	require.False(t, freed) // the caller's own reference (c) is still held
}

func TestMoveTransfersOwnership(t *testing.T) {
	m := New(nil, []byte("x"))
	moved := m.Move()
	require.Nil(t, m.Header)
	require.Nil(t, m.BodyChunk())
	require.Equal(t, "x", string(moved.Body()))
	moved.Release()
}

func TestWithHeaderPreservesBody(t *testing.T) {
	m := New([]byte("old"), []byte("body"))
	defer m.Release()
	m2 := m.WithHeader([]byte("new"))
	defer m2.Release()
	require.Equal(t, []byte("new"), m2.Header)
	require.Equal(t, "body", string(m2.Body()))
}

func TestCopyIsIndependent(t *testing.T) {
	m := New([]byte("h"), []byte("b"))
	defer m.Release()
	c := m.Copy()
	defer c.Release()
	c.Header[0] = 'x'
	require.Equal(t, byte('h'), m.Header[0])
}
