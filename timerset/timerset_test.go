package timerset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddThenRemoveBeforeFireNeverFires(t *testing.T) {
	now := time.Now()
	s := New(func() time.Time { return now })

	tag := s.Add(50 * time.Millisecond)
	s.Remove(tag)

	now = now.Add(time.Second)
	_, ok := s.Expired()
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestExpiryOrderAndTieBreak(t *testing.T) {
	now := time.Now()
	s := New(func() time.Time { return now })

	a := s.Add(10 * time.Millisecond)
	b := s.Add(10 * time.Millisecond) // same deadline, later insertion
	c := s.Add(5 * time.Millisecond)

	now = now.Add(20 * time.Millisecond)

	first, ok := s.Expired()
	require.True(t, ok)
	require.Equal(t, c, first)

	second, ok := s.Expired()
	require.True(t, ok)
	require.Equal(t, a, second)

	third, ok := s.Expired()
	require.True(t, ok)
	require.Equal(t, b, third)

	_, ok = s.Expired()
	require.False(t, ok)
}

func TestTimeoutReflectsNearestDeadline(t *testing.T) {
	now := time.Now()
	s := New(func() time.Time { return now })

	require.Equal(t, -1, s.Timeout())

	s.Add(100 * time.Millisecond)
	to := s.Timeout()
	require.Greater(t, to, 0)
	require.LessOrEqual(t, to, 100)
}

func TestRemoveUnknownTagIsNoOp(t *testing.T) {
	s := New(nil)
	require.NotPanics(t, func() { s.Remove(Tag(999)) })
}
