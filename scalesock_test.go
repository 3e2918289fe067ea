//go:build linux || darwin

package scalesock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/corectx"
	"github.com/joeycumines/scalesock/socket"
	"github.com/joeycumines/scalesock/transport/inproc"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Shutdown() })
	return ctx
}

func TestBindConnectSendRecvRoundTrip(t *testing.T) {
	reg := inproc.NewRegistry()
	ctx := testContext(t)

	a, err := NewPairSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewPairSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Bind("inproc://round-trip")
	require.NoError(t, err)
	_, err = b.Connect("inproc://round-trip")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		canSend, _ := b.Ready()
		return canSend
	}, time.Second, time.Millisecond)

	require.NoError(t, b.Send([]byte("hello"), 0))
	body, err := a.Recv()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), body)
}

func TestBindUnknownSchemeReturnsErrInval(t *testing.T) {
	ctx := testContext(t)
	s, err := NewPairSocket(ctx)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Bind("tcp://127.0.0.1:0")
	require.ErrorIs(t, err, ErrInval)

	_, err = s.Bind("not-a-url")
	require.ErrorIs(t, err, ErrInval)
}

func TestHandleAndProtocol(t *testing.T) {
	ctx := testContext(t)
	s, err := NewPushSocket(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "PUSH", s.Protocol())
	// First socket registered in a fresh context gets handle 0.
	require.Equal(t, 0, s.Handle())

	got, err := ctx.Lookup(s.Handle())
	require.NoError(t, err)
	require.Same(t, s, got)
}

func TestCloseUnregistersHandle(t *testing.T) {
	ctx := testContext(t)
	s, err := NewPairSocket(ctx)
	require.NoError(t, err)

	h := s.Handle()
	require.NoError(t, s.Close())

	_, err = ctx.Lookup(h)
	require.ErrorIs(t, err, corectx.ErrBadHandle)
}

func TestSendAfterCloseReturnsErrTerm(t *testing.T) {
	ctx := testContext(t)
	s, err := NewPairSocket(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Send([]byte("x"), 0)
	require.ErrorIs(t, err, ErrTerm)
}

func TestSetGetOptionRoundTrip(t *testing.T) {
	ctx := testContext(t)
	s, err := NewPairSocket(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetOption(socket.OptSndTimeo, 250*time.Millisecond))
	v, err := s.GetOption(socket.OptSndTimeo)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, v)
}

func TestRecvWithoutPeerTimesOut(t *testing.T) {
	ctx := testContext(t)
	s, err := NewPairSocket(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetOption(socket.OptRcvTimeo, 20*time.Millisecond))
	_, err = s.Recv()
	require.ErrorIs(t, err, ErrTimedOut)
}

func TestStatsTracksTraffic(t *testing.T) {
	reg := inproc.NewRegistry()
	ctx := testContext(t)

	a, err := NewPairSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewPairSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Bind("inproc://stats")
	require.NoError(t, err)
	_, err = b.Connect("inproc://stats")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		canSend, _ := b.Ready()
		return canSend
	}, time.Second, time.Millisecond)

	require.NoError(t, b.Send([]byte("12345"), 0))
	_, err = a.Recv()
	require.NoError(t, err)

	bStats := b.Stats()
	require.Equal(t, uint64(1), bStats.MsgsSent)
	require.Equal(t, uint64(5), bStats.BytesSent)
	require.Equal(t, 1, bStats.PipeCount)

	aStats := a.Stats()
	require.Equal(t, uint64(1), aStats.MsgsReceived)
	require.Equal(t, uint64(5), aStats.BytesRecv)
}

func TestPollReportsReadyOnArrival(t *testing.T) {
	reg := inproc.NewRegistry()
	ctx := testContext(t)

	a, err := NewPairSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewPairSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Bind("inproc://poll")
	require.NoError(t, err)
	_, err = b.Connect("inproc://poll")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		canSend, _ := b.Ready()
		return canSend
	}, time.Second, time.Millisecond)

	entries := []PollEntry{{Socket: a, In: true}}
	n, err := Poll(entries, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.False(t, entries[0].ReadyIn)

	require.NoError(t, b.Send([]byte("poke"), 0))

	n, err = Poll(entries, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, entries[0].ReadyIn)
}
