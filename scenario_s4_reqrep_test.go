//go:build linux || darwin

package scalesock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/protocol/req"
	"github.com/joeycumines/scalesock/transport/inproc"
)

// A REQ with a 200ms resend interval, connected to two REPs, resends its
// request to the second REP once the first fails to answer in time.
func TestScenarioS4ReqRepRetransmit(t *testing.T) {
	reg := inproc.NewRegistry()
	ctx := testContext(t)

	r1, err := NewRepSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer r1.Close()
	r2, err := NewRepSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer r2.Close()

	_, err = r1.Bind("inproc://r1")
	require.NoError(t, err)
	_, err = r2.Bind("inproc://r2")
	require.NoError(t, err)

	reqSock, err := NewReqSocket(ctx, WithRegistry(reg))
	require.NoError(t, err)
	defer reqSock.Close()
	require.NoError(t, reqSock.SetOption(req.OptResendIvl, 200))

	// Connect to r1 first so the initial round-robin dispatch lands there.
	_, err = reqSock.Connect("inproc://r1")
	require.NoError(t, err)
	_, err = reqSock.Connect("inproc://r2")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return reqSock.Stats().PipeCount == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, reqSock.Send([]byte("q"), 0))

	// r1 is paused: never calls Recv, so it never answers.
	require.Eventually(t, func() bool {
		_, canRecv := r2.Ready()
		return canRecv
	}, time.Second, time.Millisecond)

	body, err := r2.Recv()
	require.NoError(t, err)
	require.Equal(t, "q", string(body))
	require.NoError(t, r2.Send([]byte("a"), 0))

	reply, err := reqSock.Recv()
	require.NoError(t, err)
	require.Equal(t, "a", string(reply))
}
