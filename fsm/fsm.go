// Package fsm implements the finite-state-machine framework every socket,
// pipe, and endpoint in this library is built on. Each FSM runs on exactly
// one worker for its whole life; event delivery to a given FSM is ordered,
// and composition (a parent owning children) is the sole mechanism used to
// guarantee that no asynchronous I/O continues to reference a structure
// that is being freed: a parent stops its children by sending STOP, each
// child replies with STOPPED once it reaches IDLE, and a parent only
// declares itself IDLE after every child has.
//
// Grounded on the teacher's eventloop.FastState (atomic CAS state machine,
// cache-line padded to avoid false sharing) and eventloop.EventTarget
// ({type, target} event dispatch), generalized to the explicit
// init/start/stop/raise/raiseto/action contract and parent/child STOP
// bubbling this library's protocol cores depend on.
package fsm

import (
	"sync/atomic"
)

// EventType names an event delivered to a Handler. START, STOP, and STOPPED
// are reserved by the framework; every other value is caller-defined.
type EventType int

const (
	// Start is raised to self by Start, to move an FSM out of IDLE.
	Start EventType = iota
	// Stop is sent by a parent to a child (or to itself) to begin shutdown.
	Stop
	// Stopped is raised to the parent once a child's shutdown handler has
	// driven it back to IDLE.
	Stopped
	// userEventBase is the first value available to callers via action,
	// raise, and raiseto.
	userEventBase
)

// UserEvent returns the EventType for caller-defined event n (n >= 0),
// guaranteed distinct from Start/Stop/Stopped.
func UserEvent(n int) EventType {
	return userEventBase + EventType(n)
}

// Event is what a Handler receives: the type raised, and the identity of
// whoever raised it (SourceID is the src_id passed to raiseto, or the
// zero value for self-raised and parent/child framework events).
type Event struct {
	Type     EventType
	SourceID int
}

// Handler processes one event synchronously on the owning worker's
// goroutine. It must not block — the worker loop that drives it also
// drives every other FSM pinned to that worker.
type Handler func(f *FSM, ev Event)

// state mirrors the teacher's LoopState ordering style: small, explicit,
// checked only by CAS.
type state uint32

const (
	stateIdle state = iota
	stateActive
	stateStopping
)

// FSM is one state machine: a live handler, a shutdown handler, an owning
// parent (nil for roots), and an atomically-CAS'd lifecycle state.
type FSM struct {
	_ [64]byte // cache-line padding, matching the teacher's FastState layout

	st atomic.Uint32

	handler         Handler
	shutdownHandler Handler
	owner           *FSM
	sourceID        int

	pendingChildStops atomic.Int32
	selfDone          atomic.Bool // shutdown handler has finished its own local teardown
	outbox            chan Event // self-targeted queue, drained by the worker loop driving this FSM
}

// New allocates an FSM bound to outboxSize buffered self-events. Most
// callers get outboxSize from their worker's configured queue depth.
func New(outboxSize int) *FSM {
	return &FSM{outbox: make(chan Event, outboxSize)}
}

// Init registers handler and shutdownHandler, sets owner (nil for a root
// FSM with no parent to report STOPPED to) and sourceID (the identity this
// FSM presents to peers via raiseto), and leaves the FSM in IDLE.
func Init(f *FSM, handler, shutdownHandler Handler, owner *FSM, sourceID int) {
	f.handler = handler
	f.shutdownHandler = shutdownHandler
	f.owner = owner
	f.sourceID = sourceID
	f.st.Store(uint32(stateIdle))
}

// Start transitions f out of IDLE and emits Start to itself.
func Start(f *FSM) {
	if !f.st.CompareAndSwap(uint32(stateIdle), uint32(stateActive)) {
		return
	}
	deliver(f, f.handler, Event{Type: Start})
}

// Stop begins graceful shutdown: further events go to the shutdown
// handler. Calling Stop on an already-stopping or already-idle FSM is a
// no-op (idempotent double-stop). An FSM with no local teardown work (the
// common case) should call Done from within its shutdown handler on the
// Stop event itself; an FSM with asynchronous local work (e.g. a linger
// drain) calls Done later, once that work completes.
func Stop(f *FSM) {
	if !f.st.CompareAndSwap(uint32(stateActive), uint32(stateStopping)) {
		return
	}
	f.selfDone.Store(false)
	deliver(f, f.shutdownHandler, Event{Type: Stop})
}

// Done marks f's own local shutdown work as complete. Combined with all
// children having reported Stopped, this lets f declare itself IDLE and
// raise Stopped to its own parent. Safe to call multiple times or before
// Stop (the flag is reset by the next Stop).
func Done(f *FSM) {
	f.selfDone.Store(true)
	maybeFinishStopping(f)
}

// Action delivers a synchronous self-event, used to encode pure state
// transitions that do not cross an FSM boundary.
func Action(f *FSM, t EventType) {
	deliver(f, currentHandler(f), Event{Type: t, SourceID: f.sourceID})
}

// Raise queues an event to f's parent (owner). Silently dropped if f has
// no owner, or the owner is stopped.
func Raise(f *FSM, t EventType) {
	if f.owner == nil {
		return
	}
	RaiseTo(f.owner, f, f.sourceID, t)
}

// RaiseTo queues an event to target, tagged with srcID as the raiser's
// identity. Emitting to a stopped FSM is silently dropped.
func RaiseTo(target *FSM, _ *FSM, srcID int, t EventType) {
	if target == nil {
		return
	}
	if state(target.st.Load()) == stateIdle {
		return // framework events after IDLE are dropped, per the spec
	}
	deliver(target, currentHandler(target), Event{Type: t, SourceID: srcID})
}

// currentHandler returns the live handler while active, the shutdown
// handler while stopping.
func currentHandler(f *FSM) Handler {
	if state(f.st.Load()) == stateStopping {
		return f.shutdownHandler
	}
	return f.handler
}

// deliver invokes h synchronously, then applies the STOP/STOPPED bubbling
// rule: once a shutdown handler has driven an FSM back to IDLE, it raises
// STOPPED to its parent and, if it has no outstanding children, completes
// its own teardown.
func deliver(f *FSM, h Handler, ev Event) {
	if h == nil {
		return
	}
	h(f, ev)
	if ev.Type == Stopped {
		// A child reported completion; account for it before this FSM can
		// itself claim IDLE.
		f.pendingChildStops.Add(-1)
	}
	maybeFinishStopping(f)
}

// maybeFinishStopping declares f IDLE and raises Stopped to its parent
// once it is in the stopping state, every child has reported Stopped, and
// f's own local teardown (via Done) has completed.
func maybeFinishStopping(f *FSM) {
	if state(f.st.Load()) != stateStopping {
		return
	}
	if f.pendingChildStops.Load() > 0 {
		return
	}
	if !f.selfDone.Load() {
		return
	}
	if !f.st.CompareAndSwap(uint32(stateStopping), uint32(stateIdle)) {
		return
	}
	Raise(f, Stopped)
}

// AddChild registers one more child that must report STOPPED before f may
// declare itself IDLE during shutdown. Call once per child at construction
// time; the FSM composition rule requires every child to be accounted for
// before the parent stops.
func AddChild(f *FSM) {
	f.pendingChildStops.Add(1)
}

// IsIdle reports whether f is currently in the IDLE state.
func IsIdle(f *FSM) bool {
	return state(f.st.Load()) == stateIdle
}

// IsActive reports whether f is currently in the ACTIVE state (started,
// not yet stopping).
func IsActive(f *FSM) bool {
	return state(f.st.Load()) == stateActive
}
