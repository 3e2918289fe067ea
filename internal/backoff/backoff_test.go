package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextDoublesUntilClamped(t *testing.T) {
	c := New(10*time.Millisecond, 80*time.Millisecond)
	require.Equal(t, 10*time.Millisecond, c.Next())
	require.Equal(t, 20*time.Millisecond, c.Next())
	require.Equal(t, 40*time.Millisecond, c.Next())
	require.Equal(t, 80*time.Millisecond, c.Next())
	require.Equal(t, 80*time.Millisecond, c.Next())
}

func TestResetReturnsToInitial(t *testing.T) {
	c := New(10*time.Millisecond, 80*time.Millisecond)
	c.Next()
	c.Next()
	c.Reset()
	require.Equal(t, 10*time.Millisecond, c.Next())
}

func TestMaxBelowInitialIsRaised(t *testing.T) {
	c := New(50*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, 50*time.Millisecond, c.Next())
	require.Equal(t, 50*time.Millisecond, c.Next())
}
