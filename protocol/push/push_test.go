package push

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/protocol"
)

type memTransport struct {
	out    []message.Message
	outCap int
}

func (t *memTransport) TransportSend(msg message.Message) (ok, closed bool) {
	if t.outCap > 0 && len(t.out) >= t.outCap {
		return false, false
	}
	t.out = append(t.out, msg)
	return true, false
}
func (t *memTransport) TransportRecv() (message.Message, bool) { return message.Message{}, false }
func (t *memTransport) Close()                                 {}

func TestSendLoadBalancesAcrossPipes(t *testing.T) {
	c := New()
	tr1, tr2 := &memTransport{}, &memTransport{}
	p1, p2 := pipe.New(tr1), pipe.New(tr2)
	p1.Start()
	p2.Start()
	require.NoError(t, c.AddPipe(p1))
	require.NoError(t, c.AddPipe(p2))

	for i := 0; i < 4; i++ {
		require.True(t, c.Send(message.New(nil, []byte{byte(i)})))
	}
	require.Len(t, tr1.out, 2)
	require.Len(t, tr2.out, 2)
}

func TestNoWritablePipeMeansCannotSend(t *testing.T) {
	c := New()
	require.Equal(t, protocol.Flags(0), c.Flags())
	require.False(t, c.Send(message.New(nil, []byte("x"))))
}

func TestFullQueueReportsNotWritableWithoutDroppingDataInFlight(t *testing.T) {
	c := New()
	tr := &memTransport{outCap: 1}
	p := pipe.New(tr)
	p.Start()
	require.NoError(t, c.AddPipe(p))

	require.True(t, c.Send(message.New(nil, []byte("a"))))
	require.Len(t, tr.out, 1)

	// The one pipe's queue is now full: Flags must reflect that, not just
	// that a pipe is registered.
	require.Equal(t, protocol.Flags(0), c.Flags())
	require.False(t, c.Send(message.New(nil, []byte("b"))))
	require.Len(t, tr.out, 1)

	// The peer draining the queue fires Out, reviving writability.
	tr.out = tr.out[1:]
	c.Out(p)
	require.Equal(t, protocol.CanSend, c.Flags())
	require.True(t, c.Send(message.New(nil, []byte("c"))))
}

func TestPriorityOrderedPipesPreferredOverLowerPriority(t *testing.T) {
	c := New()
	trHigh, trLow := &memTransport{}, &memTransport{}
	pHigh, pLow := pipe.New(trHigh), pipe.New(trLow)
	pHigh.Start()
	pLow.Start()
	require.NoError(t, c.AddPipe(pLow))
	c.SetPipePriority(pLow, 5)
	require.NoError(t, c.AddPipe(pHigh))
	c.SetPipePriority(pHigh, 0)

	for i := 0; i < 3; i++ {
		require.True(t, c.Send(message.New(nil, []byte{byte(i)})))
	}
	require.Len(t, trHigh.out, 3)
	require.Empty(t, trLow.out)
}
