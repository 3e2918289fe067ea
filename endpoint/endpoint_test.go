//go:build linux || darwin

package endpoint

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/transport/inproc"
	"github.com/joeycumines/scalesock/worker"
)

type pipeSet struct {
	mu    sync.Mutex
	pipes []*pipe.Pipe
}

func (s *pipeSet) add(p *pipe.Pipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipes = append(s.pipes, p)
	return nil
}

func (s *pipeSet) remove(p *pipe.Pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.pipes {
		if q == p {
			s.pipes = append(s.pipes[:i], s.pipes[i+1:]...)
			return
		}
	}
}

func (s *pipeSet) first() *pipe.Pipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pipes) == 0 {
		return nil
	}
	return s.pipes[0]
}

func newWorker(t *testing.T) *worker.Worker {
	w, err := worker.New()
	require.NoError(t, err)
	go w.Run()
	t.Cleanup(w.Stop)
	return w
}

func TestBindConnectExchangesMessage(t *testing.T) {
	wBind := newWorker(t)
	wConn := newWorker(t)
	reg := inproc.NewRegistry()

	var bindSide, connSide pipeSet
	bindEp := New(wBind, reg, "inproc://exchange", ModeBind, 8, 8, time.Millisecond, 10*time.Millisecond, Hooks{AddPipe: bindSide.add, RmPipe: bindSide.remove}, nil)
	connEp := New(wConn, reg, "inproc://exchange", ModeConnect, 8, 8, time.Millisecond, 10*time.Millisecond, Hooks{AddPipe: connSide.add, RmPipe: connSide.remove}, nil)

	bindEp.Start()
	connEp.Start()

	require.Eventually(t, func() bool { return bindSide.first() != nil && connSide.first() != nil }, time.Second, time.Millisecond)

	cp := connSide.first()
	res, err := cp.Send(message.New(nil, []byte("hi")))
	require.NoError(t, err)
	require.Equal(t, pipe.Sent, res)

	require.Eventually(t, func() bool {
		bp := bindSide.first()
		if bp == nil {
			return false
		}
		_, res, err := bp.Recv()
		return err == nil && res == pipe.Recv
	}, time.Second, time.Millisecond)
}

func TestConnectRetriesUntilBindAppears(t *testing.T) {
	wBind := newWorker(t)
	wConn := newWorker(t)
	reg := inproc.NewRegistry()

	var bindSide, connSide pipeSet
	connEp := New(wConn, reg, "inproc://late-bind", ModeConnect, 8, 8, time.Millisecond, 5*time.Millisecond, Hooks{AddPipe: connSide.add, RmPipe: connSide.remove}, nil)
	connEp.Start()

	time.Sleep(20 * time.Millisecond)
	require.Nil(t, connSide.first())

	bindEp := New(wBind, reg, "inproc://late-bind", ModeBind, 8, 8, time.Millisecond, 5*time.Millisecond, Hooks{AddPipe: bindSide.add, RmPipe: bindSide.remove}, nil)
	bindEp.Start()

	require.Eventually(t, func() bool { return connSide.first() != nil }, time.Second, time.Millisecond)
}
