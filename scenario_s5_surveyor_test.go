//go:build linux || darwin

package scalesock

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/protocol/surveyor"
	"github.com/joeycumines/scalesock/socket"
	"github.com/joeycumines/scalesock/transport/inproc"
)

// A SURVEYOR with a 150ms deadline, connected to 3 RESPONDENTs where two
// reply promptly and one replies after the deadline, collects the first
// two replies and reports the third recv as timed out.
func TestScenarioS5SurveyorDeadline(t *testing.T) {
	reg := inproc.NewRegistry()
	ctx := testContext(t)

	sv, err := NewSurveyorSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer sv.Close()
	require.NoError(t, sv.SetOption(surveyor.OptDeadline, 150))
	require.NoError(t, sv.SetOption(socket.OptRcvTimeo, 300*time.Millisecond))

	_, err = sv.Bind("inproc://survey")
	require.NoError(t, err)

	respondents := make([]*Socket, 3)
	for i := range respondents {
		rs, err := NewRespondentSocket(ctx, WithRegistry(reg))
		require.NoError(t, err)
		defer rs.Close()
		_, err = rs.Connect("inproc://survey")
		require.NoError(t, err)
		respondents[i] = rs
	}

	require.Eventually(t, func() bool {
		return sv.Stats().PipeCount == 3
	}, time.Second, time.Millisecond)

	delays := []time.Duration{50 * time.Millisecond, 90 * time.Millisecond, 200 * time.Millisecond}
	var wg sync.WaitGroup
	wg.Add(len(respondents))
	for i, rs := range respondents {
		go func(i int, rs *Socket) {
			defer wg.Done()
			body, err := rs.Recv()
			if err != nil {
				return
			}
			require.Equal(t, "ping", string(body))
			time.Sleep(delays[i])
			_ = rs.Send([]byte(fmt.Sprintf("pong-%d", i)), 0)
		}(i, rs)
	}

	require.NoError(t, sv.Send([]byte("ping"), 0))

	first, err := sv.Recv()
	require.NoError(t, err)
	second, err := sv.Recv()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"pong-0", "pong-1"}, []string{string(first), string(second)})

	_, err = sv.Recv()
	require.ErrorIs(t, err, ErrTimedOut)

	wg.Wait()
}
