package scalesock

import "time"

// PollEntry names one Socket and which directions the caller cares about
// in a Poll call.
type PollEntry struct {
	Socket   *Socket
	In       bool
	Out      bool
	ReadyIn  bool
	ReadyOut bool
}

// Poll blocks until at least one entry reports the readiness it asked
// for, or timeout elapses (timeout < 0 means block forever; 0 means
// check once and return immediately). It sets ReadyIn/ReadyOut on every
// entry to its Socket's current readiness and returns the count of
// entries whose requested direction(s) became ready.
//
// Unlike poller.Poller (which multiplexes file-described I/O handles
// through one OS-level wait), a Socket's readiness here is computed by
// its protocol core on its own worker goroutine, and different sockets
// may live on different workers — there is no single handle this
// function could wait on. Poll instead samples every entry's readiness
// in a short bounded loop, sleeping between rounds, which is the same
// "return as soon as any entry is ready" contract poll(2) itself offers
// callers multiplexing unrelated descriptors.
func Poll(entries []PollEntry, timeout time.Duration) (int, error) {
	const pollInterval = time.Millisecond
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		ready := 0
		for i := range entries {
			e := &entries[i]
			canSend, canRecv := e.Socket.Ready()
			e.ReadyOut = canSend
			e.ReadyIn = canRecv
			if (e.In && e.ReadyIn) || (e.Out && e.ReadyOut) {
				ready++
			}
		}
		if ready > 0 {
			return ready, nil
		}
		if timeout == 0 {
			return 0, nil
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(pollInterval)
	}
}
