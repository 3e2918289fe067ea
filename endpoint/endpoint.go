// Package endpoint implements one bind or connect instance of a socket:
// the half that owns a transport-level rendezvous (an inproc.Listener or
// a direct inproc.Connect) and turns whatever connections it produces
// into pipe.Pipe values handed to the owning socket's protocol core.
//
// A connect-mode Endpoint retries failed dials with exponential backoff
// (internal/backoff); a bind-mode Endpoint accepts every connection
// queued against its name for as long as it is running. Both run their
// bookkeeping on a single fsm.FSM pinned to one worker.Worker, matching
// every other component in this library.
//
// Grounded on the teacher's eventloop package's pattern of driving
// cross-goroutine notifications through a single owned event queue
// rather than shared mutable state, adapted here from microtask
// dispatch to accept/readable/writable dispatch.
package endpoint

import (
	"time"

	"github.com/joeycumines/scalesock/fsm"
	"github.com/joeycumines/scalesock/internal/backoff"
	"github.com/joeycumines/scalesock/internal/xlog"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/timerset"
	"github.com/joeycumines/scalesock/transport/inproc"
	"github.com/joeycumines/scalesock/worker"
)

// Mode selects whether an Endpoint dials out or accepts connections.
type Mode int

const (
	// ModeConnect dials addr, retrying with backoff until it succeeds or
	// the Endpoint is stopped.
	ModeConnect Mode = iota
	// ModeBind accepts every connection queued against addr.
	ModeBind
)

var (
	evAccept    = fsm.UserEvent(0)
	evReadable  = fsm.UserEvent(1)
	evWritable  = fsm.UserEvent(2)
	evReconnect = fsm.UserEvent(3)
)

// Hooks are the socket-side callbacks an Endpoint drives as pipes come
// and go. AddPipe's error, if non-nil, rejects the pipe (e.g. PAIR's
// second peer); the Endpoint immediately tears the rejected pipe down.
type Hooks struct {
	AddPipe func(p *pipe.Pipe) error
	RmPipe  func(p *pipe.Pipe)
}

type pipeEntry struct {
	id   int
	conn *inproc.Conn
	pipe *pipe.Pipe
}

// Endpoint is one bind or connect instance.
type Endpoint struct {
	w        *worker.Worker
	reg      *inproc.Registry
	addr     string
	mode     Mode
	sndBuf   int
	rcvBuf   int
	hooks    Hooks
	backoff  *backoff.Calculator

	f        *fsm.FSM
	listener *inproc.Listener

	nextID int
	pipes  map[int]*pipeEntry

	reconnectTag    timerset.Tag
	reconnectActive bool
}

// New constructs an Endpoint. owner, if non-nil, becomes the FSM's
// parent (AddChild is called for you); pass nil for a root Endpoint
// managed directly by its socket without FSM-level composition.
func New(w *worker.Worker, reg *inproc.Registry, addr string, mode Mode, sndBuf, rcvBuf int, reconnectIvl, reconnectIvlMax time.Duration, hooks Hooks, owner *fsm.FSM) *Endpoint {
	e := &Endpoint{
		w:       w,
		reg:     reg,
		addr:    addr,
		mode:    mode,
		sndBuf:  sndBuf,
		rcvBuf:  rcvBuf,
		hooks:   hooks,
		backoff: backoff.New(reconnectIvl, reconnectIvlMax),
		pipes:   make(map[int]*pipeEntry),
	}
	e.f = fsm.New(16)
	if owner != nil {
		fsm.AddChild(owner)
	}
	fsm.Init(e.f, e.handle, e.handleShutdown, owner, 0)
	return e
}

// Start activates the Endpoint: for ModeConnect it dials immediately;
// for ModeBind it binds addr and starts accepting.
//
// Like every other FSM in this library, Start must be called from the
// owning worker's goroutine once concurrent dispatch is underway; during
// construction (before any other goroutine can reach this Endpoint) it
// is safe to call directly, which is the expected usage from socket
// setup code.
func (e *Endpoint) Start() {
	fsm.Start(e.f)
}

// PipeCount reports how many pipes this Endpoint currently owns. Like
// the rest of Endpoint's state, only safe to call from the owning
// worker's goroutine.
func (e *Endpoint) PipeCount() int { return len(e.pipes) }

// PendingOut sums the still-unread outbound backlog across every pipe
// this Endpoint owns, the figure a lingering socket Close polls while
// waiting for buffered sends to drain. Same goroutine restriction as
// PipeCount.
func (e *Endpoint) PendingOut() int {
	var n int
	for _, pe := range e.pipes {
		n += pe.pipe.Pending()
	}
	return n
}

// Stop begins graceful shutdown: the listener (if any) is unbound, every
// live pipe is failed and reported via RmPipe, and any pending reconnect
// timer is cancelled. Like Start, this touches worker-owned state
// directly and must be called from the owning worker's goroutine once
// the socket is live; callers outside that goroutine should route
// through worker.Post instead of calling Stop directly.
func (e *Endpoint) Stop() {
	fsm.Stop(e.f)
}

func (e *Endpoint) handle(f *fsm.FSM, ev fsm.Event) {
	switch ev.Type {
	case fsm.Start:
		e.start()
	case evAccept:
		e.drainAccept()
	case evReadable:
		if pe, ok := e.pipes[ev.SourceID]; ok {
			pe.pipe.NotifyIn()
		}
	case evWritable:
		if pe, ok := e.pipes[ev.SourceID]; ok {
			pe.pipe.NotifyOut()
		}
	case evReconnect:
		e.reconnectActive = false
		e.dialOnce()
	}
}

func (e *Endpoint) handleShutdown(f *fsm.FSM, ev fsm.Event) {
	switch ev.Type {
	case fsm.Stop:
		if e.listener != nil {
			e.listener.Close()
			e.listener = nil
		}
		if e.reconnectActive {
			e.w.CancelTimer(e.reconnectTag)
			e.reconnectActive = false
		}
		for id, pe := range e.pipes {
			e.teardown(id, pe)
		}
		fsm.Done(f)
	}
}

func (e *Endpoint) start() {
	switch e.mode {
	case ModeBind:
		l, err := e.reg.Bind(e.addr)
		if err != nil {
			xlog.For("endpoint").Debug().Str("addr", e.addr).Err(err).Msg("bind failed")
			return
		}
		e.listener = l
		l.SetOnAccept(func() { e.w.Post(e.f, fsm.Event{Type: evAccept}) })
		e.drainAccept()
	case ModeConnect:
		e.dialOnce()
	}
}

func (e *Endpoint) drainAccept() {
	if e.listener == nil {
		return
	}
	for {
		conn, ok := e.listener.Accept()
		if !ok {
			return
		}
		e.adopt(conn)
	}
}

// dialOnce attempts one connect; on failure it schedules a retry with
// the next backoff duration. Called on the worker goroutine only.
func (e *Endpoint) dialOnce() {
	conn, err := e.reg.Connect(e.addr, e.sndBuf, e.rcvBuf)
	if err != nil {
		e.scheduleReconnect()
		return
	}
	e.backoff.Reset()
	e.adopt(conn)
}

func (e *Endpoint) scheduleReconnect() {
	if e.reconnectActive {
		return
	}
	e.reconnectActive = true
	ivl := e.backoff.Next()
	xlog.For("endpoint").Debug().Str("addr", e.addr).Dur("in", ivl).Msg("reconnect scheduled")
	e.reconnectTag = e.w.ScheduleTimer(ivl, endpointTimerHandler{e})
}

// endpointTimerHandler adapts Endpoint to worker.TimerHandler without
// exposing HandleTimer on Endpoint's own API (it must only ever be
// invoked by the worker that owns it).
type endpointTimerHandler struct{ e *Endpoint }

func (h endpointTimerHandler) HandleTimer(tag timerset.Tag) {
	h.e.w.Post(h.e.f, fsm.Event{Type: evReconnect})
}

func (e *Endpoint) adopt(conn *inproc.Conn) {
	id := e.nextID
	e.nextID++

	p := pipe.New(conn)
	conn.OnReadable(func() { e.w.Post(e.f, fsm.Event{Type: evReadable, SourceID: id}) })
	conn.OnWritable(func() { e.w.Post(e.f, fsm.Event{Type: evWritable, SourceID: id}) })
	p.SetFailHandler(func() { e.Fail(p) })

	if err := e.hooks.AddPipe(p); err != nil {
		conn.Close()
		return
	}
	p.Start()
	e.pipes[id] = &pipeEntry{id: id, conn: conn, pipe: p}
	xlog.For("endpoint").Debug().Str("addr", e.addr).Int("pipe", id).Msg("pipe added")
}

// Fail reports that pipe p (previously handed to hooks.AddPipe) has
// broken — wired as p's fail handler in adopt, so this runs only once the
// pipe's transport itself reports closed, never for a merely full queue.
// The pipe is torn down and, for a connect-mode Endpoint, a reconnect
// attempt is scheduled.
func (e *Endpoint) Fail(p *pipe.Pipe) {
	for id, pe := range e.pipes {
		if pe.pipe == p {
			xlog.For("endpoint").Debug().Str("addr", e.addr).Int("pipe", id).Msg("pipe failed")
			e.teardown(id, pe)
			if e.mode == ModeConnect {
				e.scheduleReconnect()
			}
			return
		}
	}
}

func (e *Endpoint) teardown(id int, pe *pipeEntry) {
	delete(e.pipes, id)
	pe.pipe.Fail()
	if e.hooks.RmPipe != nil {
		e.hooks.RmPipe(pe.pipe)
	}
}
