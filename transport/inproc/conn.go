package inproc

import "github.com/joeycumines/scalesock/message"

// Conn is one side of an inproc connection, implementing pipe.Transport.
// Two Conns created by the same pair share their queues crosswise: one
// Conn's send queue is the other's recv queue.
type Conn struct {
	send *queue
	recv *queue
}

func newPair(sndBuf, rcvBuf int) (a, b *Conn) {
	aToB := newQueue(sndBuf)
	bToA := newQueue(rcvBuf)
	a = &Conn{send: aToB, recv: bToA}
	b = &Conn{send: bToA, recv: aToB}
	return a, b
}

// TransportSend implements pipe.Transport.
func (c *Conn) TransportSend(msg message.Message) (ok, closed bool) {
	return c.send.push(msg)
}

// TransportRecv implements pipe.Transport.
func (c *Conn) TransportRecv() (message.Message, bool) {
	return c.recv.pop()
}

// SendPending reports how many messages this Conn has pushed that its
// peer has not yet popped, the count a lingering Close waits to drain.
func (c *Conn) SendPending() int {
	return c.send.pending()
}

// Close implements pipe.Transport, tearing down both directions. The peer
// observes this as its own queues going empty and refusing further
// pushes; it discovers the disconnect the next time it calls
// TransportSend and gets false, or via its own Close when the owning
// endpoint notices.
func (c *Conn) Close() {
	c.send.close()
	c.recv.close()
}

// OnReadable registers the callback invoked when this Conn's peer sends a
// message into a previously empty queue, i.e. when this Conn becomes
// readable. fn must be safe to call from any goroutine; typically it
// marshals onto the owning worker via Worker.Post before calling
// pipe.Pipe.NotifyIn.
func (c *Conn) OnReadable(fn func()) {
	c.recv.setOnReadable(fn)
}

// OnWritable registers the callback invoked when this Conn's peer drains
// a previously full queue, i.e. when this Conn becomes writable again
// after a Release. Same cross-goroutine-safety contract as OnReadable.
func (c *Conn) OnWritable(fn func()) {
	c.send.setOnWritable(fn)
}
