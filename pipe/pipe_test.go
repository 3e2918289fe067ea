package pipe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/message"
)

type memTransport struct {
	out    []message.Message
	in     []message.Message
	outCap int
	dead   bool
}

func (t *memTransport) TransportSend(msg message.Message) (ok, closed bool) {
	if t.dead {
		return false, true
	}
	if t.outCap > 0 && len(t.out) >= t.outCap {
		return false, false
	}
	t.out = append(t.out, msg)
	return true, false
}

func (t *memTransport) TransportRecv() (message.Message, bool) {
	if len(t.in) == 0 {
		return message.Message{}, false
	}
	m := t.in[0]
	t.in = t.in[1:]
	return m, true
}

func (t *memTransport) Close() {}

func TestSendWhileInactiveFails(t *testing.T) {
	p := New(&memTransport{})
	_, err := p.Send(message.New(nil, []byte("x")))
	require.ErrorIs(t, err, ErrNotActive)
}

func TestSendThenRecvRoundTrip(t *testing.T) {
	tr := &memTransport{}
	p := New(tr)
	p.Start()

	res, err := p.Send(message.New(nil, []byte("hello")))
	require.NoError(t, err)
	require.Equal(t, Sent, res)

	tr.in = append(tr.in, tr.out[0])
	msg, res, err := p.Recv()
	require.NoError(t, err)
	require.Equal(t, Recv, res)
	require.Equal(t, []byte("hello"), msg.Body())
}

func TestRecvOnEmptyReturnsRelease(t *testing.T) {
	p := New(&memTransport{})
	p.Start()
	_, res, err := p.Recv()
	require.NoError(t, err)
	require.Equal(t, Release, res)
}

func TestSendOnFullQueueReturnsReleaseButStaysActive(t *testing.T) {
	p := New(&memTransport{outCap: 1})
	p.Start()

	res, err := p.Send(message.New(nil, []byte("a")))
	require.NoError(t, err)
	require.Equal(t, Sent, res)

	res, err = p.Send(message.New(nil, []byte("b")))
	require.NoError(t, err)
	require.Equal(t, Release, res)
	require.Equal(t, Active, p.OutState())
}

func TestSendOnClosedTransportFailsOutAndInvokesFailHandler(t *testing.T) {
	p := New(&memTransport{dead: true})
	p.Start()

	var failed bool
	p.SetFailHandler(func() { failed = true })

	res, err := p.Send(message.New(nil, []byte("a")))
	require.NoError(t, err)
	require.Equal(t, Release, res)
	require.Equal(t, Failed, p.OutState())
	require.True(t, failed)
}

func TestNotifyInInvokesHandlerOnlyWhenActive(t *testing.T) {
	p := New(&memTransport{})
	var called bool
	p.SetInHandler(func() { called = true })

	p.NotifyIn()
	require.False(t, called)

	p.Start()
	p.NotifyIn()
	require.True(t, called)
}
