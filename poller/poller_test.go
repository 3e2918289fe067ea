//go:build linux || darwin

package poller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func pipeFDs(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestAddReportsReadable(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, w := pipeFDs(t)
	require.NoError(t, p.Add(uintptr(r), In, "reader"))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	n, err := p.Wait(1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ev, ok := p.Event()
	require.True(t, ok)
	require.Equal(t, uintptr(r), ev.Handle)
	require.NotZero(t, ev.Ready&In)
	require.Equal(t, "reader", ev.UserPtr)

	_, ok = p.Event()
	require.False(t, ok)
}

func TestWaitTimesOutWithNoReadyHandles(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, _ := pipeFDs(t)
	require.NoError(t, p.Add(uintptr(r), In, nil))

	n, err := p.Wait(20)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestOutInterestReportsWritable(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	_, w := pipeFDs(t)
	require.NoError(t, p.Add(uintptr(w), Out, nil))

	n, err := p.Wait(1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ev, ok := p.Event()
	require.True(t, ok)
	require.NotZero(t, ev.Ready&Out)
}

func TestResetInStopsReadableNotifications(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, w := pipeFDs(t)
	require.NoError(t, p.Add(uintptr(r), In, nil))
	require.NoError(t, p.ResetIn(uintptr(r)))

	_, err = unix.Write(w, []byte("y"))
	require.NoError(t, err)

	n, err := p.Wait(20)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRemoveDropsHandle(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, _ := pipeFDs(t)
	require.NoError(t, p.Add(uintptr(r), In, nil))
	require.NoError(t, p.Remove(uintptr(r)))
	require.ErrorIs(t, p.Remove(uintptr(r)), ErrNotRegistered)
}

func TestAddTwiceFails(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, _ := pipeFDs(t)
	require.NoError(t, p.Add(uintptr(r), In, nil))
	require.ErrorIs(t, p.Add(uintptr(r), In, nil), ErrAlreadyAdded)
}

func TestCloseThenWaitFails(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Wait(0)
	require.ErrorIs(t, err, ErrClosed)
}
