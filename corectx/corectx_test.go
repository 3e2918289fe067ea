//go:build linux || darwin

package corectx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSocket struct{ closed bool }

func (s *stubSocket) Close() error { s.closed = true; return nil }

func TestRegisterLookupUnregister(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Shutdown()

	s := &stubSocket{}
	h, err := c.Register(s)
	require.NoError(t, err)

	got, err := c.Lookup(h)
	require.NoError(t, err)
	require.Same(t, s, got)

	c.Unregister(h)
	_, err = c.Lookup(h)
	require.ErrorIs(t, err, ErrBadHandle)
}

func TestHandleRecycledFromFreeList(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Shutdown()

	h1, err := c.Register(&stubSocket{})
	require.NoError(t, err)
	c.Unregister(h1)

	h2, err := c.Register(&stubSocket{})
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestShutdownRefusesWithLiveSockets(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, err = c.Register(&stubSocket{})
	require.NoError(t, err)

	require.ErrorIs(t, c.Shutdown(), ErrHasSockets)

	require.Equal(t, 1, c.LiveSocketCount())
}

func TestShutdownIsIdempotent(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Shutdown())
}

func TestRegisterAfterShutdownFails(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.Shutdown())

	_, err = c.Register(&stubSocket{})
	require.ErrorIs(t, err, ErrTerm)
}
