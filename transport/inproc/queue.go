package inproc

import (
	"sync"

	"github.com/joeycumines/scalesock/message"
)

// queue is a bounded FIFO of messages flowing in one direction between two
// inproc peers, sized by the connecting socket's SNDBUF or RCVBUF
// depending on direction (see Registry.Connect). Both push and pop
// are safe for concurrent use since the two peers may be pinned to
// different worker goroutines.
type queue struct {
	mu       sync.Mutex
	buf      []message.Message
	capacity int
	closed   bool

	// onReadable is invoked (outside the lock) after a push transitions the
	// queue from empty to non-empty, notifying the consuming pipe it has
	// become readable again.
	onReadable func()
	// onWritable is invoked (outside the lock) after a pop transitions the
	// queue from full to non-full, notifying the producing pipe it has
	// become writable again.
	onWritable func()
}

func newQueue(capacity int) *queue {
	if capacity < 1 {
		capacity = 1
	}
	return &queue{capacity: capacity}
}

func (q *queue) setOnReadable(fn func()) {
	q.mu.Lock()
	q.onReadable = fn
	q.mu.Unlock()
}

func (q *queue) setOnWritable(fn func()) {
	q.mu.Lock()
	q.onWritable = fn
	q.mu.Unlock()
}

// push enqueues msg. ok is false if msg was not enqueued; closed
// distinguishes why: true means the queue is permanently closed, false
// means it is merely at capacity (transient, revivable once pop drains
// it below capacity).
func (q *queue) push(msg message.Message) (ok, closed bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, true
	}
	if len(q.buf) >= q.capacity {
		q.mu.Unlock()
		return false, false
	}
	wasEmpty := len(q.buf) == 0
	q.buf = append(q.buf, msg)
	notify := q.onReadable
	q.mu.Unlock()
	if wasEmpty && notify != nil {
		notify()
	}
	return true, false
}

// pop dequeues the oldest message, returning ok=false if the queue is
// empty.
func (q *queue) pop() (message.Message, bool) {
	q.mu.Lock()
	if len(q.buf) == 0 {
		q.mu.Unlock()
		return message.Message{}, false
	}
	wasFull := len(q.buf) >= q.capacity
	msg := q.buf[0]
	q.buf[0] = message.Message{}
	q.buf = q.buf[1:]
	notify := q.onWritable
	q.mu.Unlock()
	if wasFull && notify != nil {
		notify()
	}
	return msg, true
}

// pending reports how many messages are currently buffered, waiting for
// the peer to pop them.
func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// close marks the queue closed and drops any buffered messages, releasing
// their body chunks.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.buf
	q.buf = nil
	q.mu.Unlock()
	for _, msg := range pending {
		msg.Release()
	}
}
