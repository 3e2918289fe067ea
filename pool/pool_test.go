//go:build linux || darwin

package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChooseWorkerRoundRobins(t *testing.T) {
	p, err := New(WithSize(3))
	require.NoError(t, err)
	defer p.Close()

	w1 := p.ChooseWorker()
	w2 := p.ChooseWorker()
	w3 := p.ChooseWorker()
	w4 := p.ChooseWorker()

	require.NotSame(t, w1, w2)
	require.NotSame(t, w2, w3)
	require.Same(t, w1, w4)
}

func TestDefaultSizeIsOne(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, 1, p.Size())
}
