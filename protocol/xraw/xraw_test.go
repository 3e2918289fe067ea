package xraw

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/protocol"
)

type memTransport struct {
	out []message.Message
	in  []message.Message
}

func (t *memTransport) TransportSend(msg message.Message) (ok, closed bool) {
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

func TestXPairRejectsSecondPeer(t *testing.T) {
	c := NewXPair()
	p1 := pipe.New(&memTransport{})
	p1.Start()
	require.NoError(t, c.AddPipe(p1))

	p2 := pipe.New(&memTransport{})
	p2.Start()
	err := c.AddPipe(p2)
	var rej *protocol.ErrPipeRejected
	require.ErrorAs(t, err, &rej)
}

func TestXReqPassesEnvelopeThroughUntouched(t *testing.T) {
	c := NewXReq()
	tr := &memTransport{}
	p := pipe.New(tr)
	p.Start()
	require.NoError(t, c.AddPipe(p))

	require.True(t, c.Send(message.New([]byte{0xAB}, []byte("q"))))
	require.Equal(t, []byte{0xAB}, tr.out[0].Header)

	tr.in = append(tr.in, message.New([]byte{0xCD}, []byte("a")))
	c.In(p)
	msg, ok := c.Recv()
	require.True(t, ok)
	require.Equal(t, []byte{0xCD}, msg.Header)
}
