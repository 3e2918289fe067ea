//go:build linux || darwin

package scalesock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/socket"
	"github.com/joeycumines/scalesock/transport/inproc"
)

// A PUSH bound socket fans 100 one-byte messages out to two connected
// PULLs round-robin; each should end up with about half, and together
// they must account for every byte sent, exactly once.
func TestScenarioS2PushPullFanOutFairness(t *testing.T) {
	reg := inproc.NewRegistry()
	ctx := testContext(t)

	push, err := NewPushSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer push.Close()
	c1, err := NewPullSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer c1.Close()
	c2, err := NewPullSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer c2.Close()

	_, err = push.Bind("inproc://fanout")
	require.NoError(t, err)
	_, err = c1.Connect("inproc://fanout")
	require.NoError(t, err)
	_, err = c2.Connect("inproc://fanout")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return push.Stats().PipeCount == 2
	}, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	var mu sync.Mutex
	received := make(map[byte]int)
	counts := map[*Socket]int{c1: 0, c2: 0}

	drain := func(s *Socket) {
		defer wg.Done()
		require.NoError(t, s.SetOption(socket.OptRcvTimeo, 200*time.Millisecond))
		for {
			body, err := s.Recv()
			if err != nil {
				return
			}
			mu.Lock()
			received[body[0]]++
			counts[s]++
			mu.Unlock()
		}
	}

	wg.Add(2)
	go drain(c1)
	go drain(c2)

	for i := 0; i < 100; i++ {
		require.NoError(t, push.Send([]byte{byte(i)}, 0))
	}

	wg.Wait()

	require.Len(t, received, 100)
	for i := 0; i < 100; i++ {
		require.Equal(t, 1, received[byte(i)], "byte %d delivered wrong number of times", i)
	}

	diff := counts[c1] - counts[c2]
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, diff, 1)
	require.Equal(t, 100, counts[c1]+counts[c2])
}
