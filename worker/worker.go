// Package worker implements the single-goroutine event loop each FSM is
// pinned to for its whole life: one poller, one timer set, one cross-thread
// wakeup primitive. The loop computes timeout = min(timerset.Timeout(), ∞),
// blocks in poller.Wait(timeout), and for each ready handle either drains
// the cross-thread queue (the wakeup handle) or hands the I/O event to its
// registered owner; expired timers are dispatched the same way. FSM event
// handlers run synchronously on this goroutine and must not block — every
// wait happens inside the loop, never outside it.
//
// Grounded on the teacher's eventloop.Loop.poll/Run (state-gated poll,
// wake-then-drain dispatch), simplified from its task-queue/microtask/
// promise machinery down to the FSM-event and I/O dispatch this spec names.
package worker

import (
	"sync"
	"time"

	"github.com/joeycumines/scalesock/fsm"
	"github.com/joeycumines/scalesock/poller"
	"github.com/joeycumines/scalesock/timerset"
	"github.com/joeycumines/scalesock/wakeup"
)

// IOHandler receives readiness notifications for a handle registered via
// RegisterIO.
type IOHandler interface {
	HandleIO(ev poller.Event)
}

// TimerHandler receives a notification when a timer it scheduled expires.
type TimerHandler interface {
	HandleTimer(tag timerset.Tag)
}

type postedEvent struct {
	target *fsm.FSM
	ev     fsm.Event
}

// Worker owns exactly one poller, one timer set, and one wakeup.FD. FSMs,
// pipes, and sockets constructed against a Worker never migrate to another
// one. All exported methods except Post and Call are intended to be called
// only from the Worker's own goroutine (i.e. from inside a dispatched
// handler); Post and Call are the cross-thread-safe entry points.
type Worker struct {
	poller poller.Poller
	timers *timerset.Set
	wake   *wakeup.FD

	mu          sync.Mutex
	queue       []postedEvent
	calls       []func()
	timerOwners map[timerset.Tag]TimerHandler

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Worker with its own poller, timer set, and wakeup FD.
func New() (*Worker, error) {
	p, err := poller.New()
	if err != nil {
		return nil, err
	}
	fd, err := wakeup.New()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	if err := p.Add(fd.Handle(), poller.In, nil); err != nil {
		_ = p.Close()
		_ = fd.Close()
		return nil, err
	}
	return &Worker{
		poller:      p,
		timers:      timerset.New(nil),
		wake:        fd,
		timerOwners: make(map[timerset.Tag]TimerHandler),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// RegisterIO registers handle for interest, delivering readiness to h via
// HandleIO. Must be called from the worker's own goroutine.
func (w *Worker) RegisterIO(handle uintptr, interest poller.Direction, h IOHandler) error {
	return w.poller.Add(handle, interest, h)
}

// UnregisterIO deregisters handle.
func (w *Worker) UnregisterIO(handle uintptr) error {
	return w.poller.Remove(handle)
}

func (w *Worker) SetIn(handle uintptr) error    { return w.poller.SetIn(handle) }
func (w *Worker) ResetIn(handle uintptr) error  { return w.poller.ResetIn(handle) }
func (w *Worker) SetOut(handle uintptr) error   { return w.poller.SetOut(handle) }
func (w *Worker) ResetOut(handle uintptr) error { return w.poller.ResetOut(handle) }

// ScheduleTimer arranges for h.HandleTimer(tag) to fire after delta.
func (w *Worker) ScheduleTimer(delta time.Duration, h TimerHandler) timerset.Tag {
	tag := w.timers.Add(delta)
	w.timerOwners[tag] = h
	return tag
}

// CancelTimer cancels a pending timer; a no-op if it already fired or is
// unknown.
func (w *Worker) CancelTimer(tag timerset.Tag) {
	w.timers.Remove(tag)
	delete(w.timerOwners, tag)
}

// Post queues ev for delivery to target on this worker's goroutine and
// wakes the loop. Safe to call from any goroutine, including other
// workers — this is the sole mechanism by which one worker pushes an FSM
// event onto another worker's loop.
func (w *Worker) Post(target *fsm.FSM, ev fsm.Event) {
	w.mu.Lock()
	w.queue = append(w.queue, postedEvent{target: target, ev: ev})
	w.mu.Unlock()
	w.wake.Signal()
}

// Call runs fn on this worker's goroutine and blocks until it returns.
// Unlike Post, which is fire-and-forget, Call lets a caller outside the
// worker synchronously drive operations on state that — like a
// protocol.Core — is only safe to touch from the owning worker's
// goroutine (e.g. a socket's blocking Send/Recv). Must never be called
// from the worker's own goroutine, which would deadlock against itself.
func (w *Worker) Call(fn func()) {
	done := make(chan struct{})
	w.mu.Lock()
	w.calls = append(w.calls, func() {
		fn()
		close(done)
	})
	w.mu.Unlock()
	w.wake.Signal()
	<-done
}

// Run drives the loop until Stop is called. It returns once fully wound
// down; call it from the goroutine that is to become this worker's
// permanent home.
func (w *Worker) Run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		timeout := w.timers.Timeout()
		n, err := w.poller.Wait(timeout)
		if err != nil {
			if err == poller.ErrClosed {
				return
			}
			continue
		}

		for i := 0; i < n; i++ {
			ev, ok := w.poller.Event()
			if !ok {
				break
			}
			if ev.Handle == w.wake.Handle() {
				w.wake.Unsignal()
				w.drainQueue()
				w.drainCalls()
				continue
			}
			if h, ok := ev.UserPtr.(IOHandler); ok {
				h.HandleIO(ev)
			}
		}

		for {
			tag, ok := w.timers.Expired()
			if !ok {
				break
			}
			if h, ok := w.timerOwners[tag]; ok {
				delete(w.timerOwners, tag)
				h.HandleTimer(tag)
			}
		}
	}
}

func (w *Worker) drainQueue() {
	w.mu.Lock()
	batch := w.queue
	w.queue = nil
	w.mu.Unlock()
	for _, pe := range batch {
		fsm.RaiseTo(pe.target, nil, pe.ev.SourceID, pe.ev.Type)
	}
}

func (w *Worker) drainCalls() {
	w.mu.Lock()
	batch := w.calls
	w.calls = nil
	w.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
}

// Stop signals Run to return after its current iteration and blocks until
// it has. Idempotent.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.doneCh
	_ = w.poller.Close()
	_ = w.wake.Close()
}
