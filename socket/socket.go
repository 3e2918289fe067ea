// Package socket implements the protocol-agnostic socket base: option
// storage, the blocking semantics of Send/Recv, linger-on-close, max
// message size enforcement, and the glue between pipe IN/OUT
// notifications and a protocol.Core.
//
// Grounded on the teacher's eventloop package's promise-resolution
// pattern (a condition variable broadcast whenever state relevant to a
// blocked waiter changes, woken waiters re-check rather than assuming
// their turn), adapted here from promise settlement to protocol
// readiness (CanSend/CanRecv).
package socket

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joeycumines/scalesock/endpoint"
	"github.com/joeycumines/scalesock/fsm"
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/protocol"
	"github.com/joeycumines/scalesock/transport/inproc"
	"github.com/joeycumines/scalesock/worker"
)

// Sentinel errors surfaced at the socket boundary.
var (
	ErrAgain    = errors.New("socket: operation would block")
	ErrTimedOut = errors.New("socket: deadline exceeded")
	ErrTerm     = errors.New("socket: socket is closed")
	ErrMsgSize  = errors.New("socket: message exceeds configured maximum size")
)

// infinite is the timeout sentinel meaning "block forever", mirroring
// the spec's −1 convention for SNDTIMEO/RCVTIMEO.
const infinite = -1 * time.Millisecond

// pollLingerIvl is how often a lingering Close rechecks each pipe's
// outbound backlog.
const pollLingerIvl = time.Millisecond

type options struct {
	mu sync.Mutex

	linger          time.Duration
	sndBuf          int
	rcvBuf          int
	sndTimeo        time.Duration
	rcvTimeo        time.Duration
	reconnectIvl    time.Duration
	reconnectIvlMax time.Duration
	sndPrio         int
	rcvPrio         int
	ipv4Only        bool
	name            string
	maxMsgSize      int
}

func defaultOptions() *options {
	return &options{
		linger:          0,
		sndBuf:          1024,
		rcvBuf:          1024,
		sndTimeo:        infinite,
		rcvTimeo:        infinite,
		reconnectIvl:    100 * time.Millisecond,
		reconnectIvlMax: 30 * time.Second,
		maxMsgSize:      1 << 20,
	}
}

// Socket is the protocol-agnostic wrapper around one protocol.Core,
// pinned to one worker.Worker along with every pipe and endpoint it
// owns.
type Socket struct {
	w    *worker.Worker
	core protocol.Core
	reg  *inproc.Registry

	opts *options

	mu   sync.Mutex
	cond *sync.Cond
	term bool

	f *fsm.FSM

	nextEndpointID int
	endpoints      map[int]*endpoint.Endpoint

	// sndSem/rcvSem serialize concurrent blocking callers through each
	// direction's waitAndDo loop, one at a time — the spec's "a send and
	// a receive semaphore for blocking callers" (distinct from cond,
	// which is the "condition for option-change wakeups").
	sndSem *semaphore.Weighted
	rcvSem *semaphore.Weighted

	termCtx    context.Context
	termCancel context.CancelFunc
}

// New constructs a Socket driving core, scheduled on w, binding and
// connecting through reg.
func New(w *worker.Worker, core protocol.Core, reg *inproc.Registry) *Socket {
	s := &Socket{
		w:         w,
		core:      core,
		reg:       reg,
		opts:      defaultOptions(),
		endpoints: make(map[int]*endpoint.Endpoint),
		sndSem:    semaphore.NewWeighted(1),
		rcvSem:    semaphore.NewWeighted(1),
	}
	s.cond = sync.NewCond(&s.mu)
	s.termCtx, s.termCancel = context.WithCancel(context.Background())
	s.f = fsm.New(16)
	fsm.Init(s.f, func(*fsm.FSM, fsm.Event) {}, func(f *fsm.FSM, ev fsm.Event) { fsm.Done(f) }, nil, 0)
	fsm.Start(s.f)
	return s
}

// Bind creates a listening endpoint at addr, returning its id.
func (s *Socket) Bind(addr string) (int, error) {
	return s.addEndpoint(addr, endpoint.ModeBind)
}

// Connect creates a connecting endpoint to addr, returning its id.
func (s *Socket) Connect(addr string) (int, error) {
	return s.addEndpoint(addr, endpoint.ModeConnect)
}

func (s *Socket) addEndpoint(addr string, mode endpoint.Mode) (int, error) {
	var id int
	var err error
	s.w.Call(func() {
		if s.term {
			err = ErrTerm
			return
		}
		s.opts.mu.Lock()
		sndBuf, rcvBuf := s.opts.sndBuf, s.opts.rcvBuf
		ivl, ivlMax := s.opts.reconnectIvl, s.opts.reconnectIvlMax
		s.opts.mu.Unlock()

		id = s.nextEndpointID
		s.nextEndpointID++
		ep := endpoint.New(s.w, s.reg, addr, mode, sndBuf, rcvBuf, ivl, ivlMax, endpoint.Hooks{
			AddPipe: s.addPipe,
			RmPipe:  s.rmPipe,
		}, s.f)
		s.endpoints[id] = ep
		ep.Start()
	})
	return id, err
}

// Shutdown tears down one endpoint previously returned by Bind/Connect.
func (s *Socket) Shutdown(id int) error {
	var err error
	s.w.Call(func() {
		ep, ok := s.endpoints[id]
		if !ok {
			err = errors.New("socket: unknown endpoint id")
			return
		}
		delete(s.endpoints, id)
		ep.Stop()
	})
	return err
}

func (s *Socket) addPipe(p *pipe.Pipe) error {
	if err := s.core.AddPipe(p); err != nil {
		return err
	}
	if pa, ok := s.core.(protocol.PriorityAware); ok {
		s.opts.mu.Lock()
		prio := s.opts.sndPrio
		s.opts.mu.Unlock()
		pa.SetPipePriority(p, prio)
	}
	p.SetInHandler(func() {
		s.core.In(p)
		s.wake()
	})
	p.SetOutHandler(func() {
		s.core.Out(p)
		s.wake()
	})
	s.wake()
	return nil
}

func (s *Socket) rmPipe(p *pipe.Pipe) {
	s.core.RmPipe(p)
	s.wake()
}

func (s *Socket) wake() {
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

// PipeCount reports how many pipes are currently live across every
// endpoint this socket owns.
func (s *Socket) PipeCount() int {
	var n int
	s.w.Call(func() {
		for _, ep := range s.endpoints {
			n += ep.PipeCount()
		}
	})
	return n
}

// Ready reports the protocol core's current CanSend/CanRecv flags
// without blocking or consuming anything, the primitive a multi-socket
// Poll is built on.
func (s *Socket) Ready() (canSend, canRecv bool) {
	s.w.Call(func() {
		f := s.core.Flags()
		canSend = f&protocol.CanSend != 0
		canRecv = f&protocol.CanRecv != 0
	})
	return
}

// Send hands msg to the protocol core, blocking according to SNDTIMEO
// until the core reports CanSend, the deadline elapses, or the socket
// closes. msg is always consumed (released) by this call.
func (s *Socket) Send(msg message.Message) error {
	s.opts.mu.Lock()
	timeout := s.opts.sndTimeo
	maxSize := s.opts.maxMsgSize
	s.opts.mu.Unlock()

	if msg.Len() > maxSize {
		msg.Release()
		return ErrMsgSize
	}

	if err := s.acquireSem(s.sndSem, timeout); err != nil {
		msg.Release()
		return err
	}
	defer s.sndSem.Release(1)

	var sent bool
	err := s.waitAndDo(timeout, func() (bool, error) {
		if s.core.Flags()&protocol.CanSend == 0 {
			return false, nil
		}
		sent = s.core.Send(msg)
		return true, nil
	}, func() { msg.Release() })
	if err != nil {
		return err
	}
	if !sent {
		return ErrAgain
	}
	return nil
}

// Recv blocks according to RCVTIMEO until the core reports CanRecv, the
// deadline elapses, or the socket closes.
func (s *Socket) Recv() (message.Message, error) {
	s.opts.mu.Lock()
	timeout := s.opts.rcvTimeo
	s.opts.mu.Unlock()

	if err := s.acquireSem(s.rcvSem, timeout); err != nil {
		return message.Message{}, err
	}
	defer s.rcvSem.Release(1)

	var out message.Message
	err := s.waitAndDo(timeout, func() (bool, error) {
		msg, ok := s.core.Recv()
		if !ok {
			return false, nil
		}
		out = msg
		return true, nil
	}, nil)
	return out, err
}

// acquireSem blocks until sem is free, the deadline derived from timeout
// elapses, or the socket closes, returning ErrAgain/ErrTimedOut/ErrTerm
// accordingly. A timeout of 0 tries once without blocking.
func (s *Socket) acquireSem(sem *semaphore.Weighted, timeout time.Duration) error {
	if timeout == 0 {
		if !sem.TryAcquire(1) {
			return ErrAgain
		}
		return nil
	}
	ctx := s.termCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.termCtx, timeout)
		defer cancel()
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		if s.termCtx.Err() != nil {
			return ErrTerm
		}
		return ErrTimedOut
	}
	return nil
}

// waitAndDo runs attempt on the worker goroutine repeatedly until it
// reports done, the deadline (derived from timeout) elapses, or the
// socket terminates. onAbort, if non-nil, runs once if the call gives
// up without attempt ever succeeding.
func (s *Socket) waitAndDo(timeout time.Duration, attempt func() (bool, error), onAbort func()) error {
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		var done bool
		var attemptErr error
		var termed bool
		s.w.Call(func() {
			if s.term {
				termed = true
				return
			}
			done, attemptErr = attempt()
		})
		if termed {
			if onAbort != nil {
				onAbort()
			}
			return ErrTerm
		}
		if attemptErr != nil {
			if onAbort != nil {
				onAbort()
			}
			return attemptErr
		}
		if done {
			return nil
		}

		if timeout == 0 {
			if onAbort != nil {
				onAbort()
			}
			return ErrAgain
		}
		if hasDeadline && !time.Now().Before(deadline) {
			if onAbort != nil {
				onAbort()
			}
			return ErrTimedOut
		}
		if !s.waitReady(deadline, hasDeadline) {
			if onAbort != nil {
				onAbort()
			}
			return ErrTimedOut
		}
	}
}

// waitReady blocks on the readiness condition until woken or deadline
// passes (when hasDeadline), returning false only on deadline expiry.
func (s *Socket) waitReady(deadline time.Time, hasDeadline bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var timer *time.Timer
	if hasDeadline {
		timer = time.AfterFunc(time.Until(deadline), s.wake)
		defer timer.Stop()
	}
	s.cond.Wait()
	return !hasDeadline || time.Now().Before(deadline)
}

// Close begins linger-then-teardown: while any pipe still has unread
// outbound messages buffered, Close waits (polling every pollLingerIvl)
// for the peer to drain them, up to LINGER; tearing a pipe's transport
// down before that would drop whatever it was still holding. Once the
// backlog clears or LINGER elapses, every endpoint is stopped and the
// core destroyed.
func (s *Socket) Close() error {
	s.opts.mu.Lock()
	linger := s.opts.linger
	s.opts.mu.Unlock()

	if linger > 0 {
		deadline := time.Now().Add(linger)
		for {
			var pending int
			s.w.Call(func() {
				if s.term {
					return
				}
				for _, ep := range s.endpoints {
					pending += ep.PendingOut()
				}
			})
			if pending == 0 || !time.Now().Before(deadline) {
				break
			}
			time.Sleep(pollLingerIvl)
		}
	}

	s.w.Call(func() {
		if s.term {
			return
		}
		s.term = true
		for id, ep := range s.endpoints {
			ep.Stop()
			delete(s.endpoints, id)
		}
		s.core.Destroy()
		fsm.Stop(s.f)
	})
	s.termCancel()
	s.wake()
	return nil
}

// SetOption sets a socket-level option, or forwards to the protocol core
// for any name this package does not recognize.
func (s *Socket) SetOption(name string, value any) error {
	s.opts.mu.Lock()
	switch name {
	case OptLinger:
		s.opts.linger = value.(time.Duration)
		s.opts.mu.Unlock()
		return nil
	case OptSndBuf:
		s.opts.sndBuf = value.(int)
		s.opts.mu.Unlock()
		return nil
	case OptRcvBuf:
		s.opts.rcvBuf = value.(int)
		s.opts.mu.Unlock()
		return nil
	case OptSndTimeo:
		s.opts.sndTimeo = value.(time.Duration)
		s.opts.mu.Unlock()
		s.wake()
		return nil
	case OptRcvTimeo:
		s.opts.rcvTimeo = value.(time.Duration)
		s.opts.mu.Unlock()
		s.wake()
		return nil
	case OptReconnectIvl:
		s.opts.reconnectIvl = value.(time.Duration)
		s.opts.mu.Unlock()
		return nil
	case OptReconnectIvlMax:
		s.opts.reconnectIvlMax = value.(time.Duration)
		s.opts.mu.Unlock()
		return nil
	case OptSndPrio:
		s.opts.sndPrio = value.(int)
		s.opts.mu.Unlock()
		return nil
	case OptRcvPrio:
		s.opts.rcvPrio = value.(int)
		s.opts.mu.Unlock()
		return nil
	case OptIPv4Only:
		s.opts.ipv4Only = value.(bool)
		s.opts.mu.Unlock()
		return nil
	case OptSocketName:
		s.opts.name = value.(string)
		s.opts.mu.Unlock()
		return nil
	case OptMaxMsgSize:
		s.opts.maxMsgSize = value.(int)
		s.opts.mu.Unlock()
		return nil
	}
	s.opts.mu.Unlock()

	var err error
	s.w.Call(func() { err = s.core.SetOption(name, value) })
	return err
}

// GetOption mirrors SetOption's dispatch.
func (s *Socket) GetOption(name string) (any, error) {
	s.opts.mu.Lock()
	defer s.opts.mu.Unlock()
	switch name {
	case OptLinger:
		return s.opts.linger, nil
	case OptSndBuf:
		return s.opts.sndBuf, nil
	case OptRcvBuf:
		return s.opts.rcvBuf, nil
	case OptSndTimeo:
		return s.opts.sndTimeo, nil
	case OptRcvTimeo:
		return s.opts.rcvTimeo, nil
	case OptReconnectIvl:
		return s.opts.reconnectIvl, nil
	case OptReconnectIvlMax:
		return s.opts.reconnectIvlMax, nil
	case OptSndPrio:
		return s.opts.sndPrio, nil
	case OptRcvPrio:
		return s.opts.rcvPrio, nil
	case OptIPv4Only:
		return s.opts.ipv4Only, nil
	case OptSocketName:
		return s.opts.name, nil
	case OptMaxMsgSize:
		return s.opts.maxMsgSize, nil
	}

	var val any
	var err error
	s.w.Call(func() { val, err = s.core.GetOption(name) })
	return val, err
}

// Recognized socket-level option names.
const (
	OptLinger          = "LINGER"
	OptSndBuf          = "SNDBUF"
	OptRcvBuf          = "RCVBUF"
	OptSndTimeo        = "SNDTIMEO"
	OptRcvTimeo        = "RCVTIMEO"
	OptReconnectIvl    = "RECONNECT_IVL"
	OptReconnectIvlMax = "RECONNECT_IVL_MAX"
	OptSndPrio         = "SNDPRIO"
	OptRcvPrio         = "RCVPRIO"
	OptIPv4Only        = "IPV4ONLY"
	OptSocketName      = "SOCKET_NAME"
	// OptMaxMsgSize is not in the socket-level option table but is the
	// mechanism 4.8's max-message-size enforcement is configured through;
	// protocols that need a hop/TTL bound or pattern-specific timing
	// expose their own option names via SetOption/GetOption's core
	// fallback instead (MAXTTL, SURVEYOR_DEADLINE, REQ_RESEND_IVL,
	// SUB_SUBSCRIBE, SUB_UNSUBSCRIBE).
	OptMaxMsgSize = "MAXMSGSIZE"
)
