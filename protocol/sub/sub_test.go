package sub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
)

type memTransport struct{ in []message.Message }

func (t *memTransport) TransportSend(msg message.Message) (ok, closed bool) { return true, false }
func (t *memTransport) TransportRecv() (message.Message, bool) {
	if len(t.in) == 0 {
		return message.Message{}, false
	}
	m := t.in[0]
	t.in = t.in[1:]
	return m, true
}
func (t *memTransport) Close() {}

func TestSubscriptionFiltersMessages(t *testing.T) {
	c := New()
	require.NoError(t, c.SetOption(OptSubscribe, "BTC"))

	tr := &memTransport{in: []message.Message{
		message.New(nil, []byte("BTC:10")),
		message.New(nil, []byte("ETH:2")),
		message.New(nil, []byte("BTC:11")),
	}}
	p := pipe.New(tr)
	p.Start()
	require.NoError(t, c.AddPipe(p))

	c.In(p)

	m1, ok := c.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("BTC:10"), m1.Body())

	m2, ok := c.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("BTC:11"), m2.Body())

	_, ok = c.Recv()
	require.False(t, ok)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := New()
	require.NoError(t, c.SetOption(OptSubscribe, "BTC"))
	require.NoError(t, c.SetOption(OptUnsubscribe, "BTC"))

	tr := &memTransport{in: []message.Message{message.New(nil, []byte("BTC:10"))}}
	p := pipe.New(tr)
	p.Start()
	require.NoError(t, c.AddPipe(p))
	c.In(p)

	_, ok := c.Recv()
	require.False(t, ok)
}
