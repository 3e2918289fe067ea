// Package wakeup implements the "efd" cross-thread signaling primitive
// described by the async I/O engine: a readable handle that becomes ready
// as soon as Signal is called from any goroutine, cleared by Unsignal, used
// by a worker to wake its poller when another goroutine queues FSM work for
// it.
//
// Signal is lock-free and idempotent between an Unsignal and the next
// Signal: any number of concurrent Signal calls between two drains collapse
// to a single readiness edge.
package wakeup

import "sync/atomic"

// FD is a cross-thread wakeup signal backed by a platform-native readable
// handle (eventfd on Linux, a self-pipe on Darwin/BSD — see wakeup_*.go).
// It is registered with a poller.Poller like any other I/O handle. On
// Windows it is backed by a buffered channel instead and Handle returns 0.
type FD struct {
	signaled atomic.Bool
	impl     platformFD
}

// New creates and opens a wakeup FD. The caller must Close it when done.
func New() (*FD, error) {
	impl, err := newPlatformFD()
	if err != nil {
		return nil, err
	}
	return &FD{impl: impl}, nil
}

// Handle returns the readable descriptor to register with a poller.
func (f *FD) Handle() uintptr {
	return f.impl.handle()
}

// Signal marks the FD readable. Safe to call from any goroutine,
// concurrently, and idempotent: multiple Signal calls before the next
// Unsignal coalesce into one wakeup.
func (f *FD) Signal() {
	if f.signaled.CompareAndSwap(false, true) {
		f.impl.notify()
	}
}

// Unsignal clears the readable state and drains any pending platform-level
// notification bytes. Call this after the poller reports the FD readable
// and before re-arming it, so a subsequent Signal reliably produces a new
// readiness edge.
func (f *FD) Unsignal() {
	f.signaled.Store(false)
	f.impl.drain()
}

// Close releases the underlying platform resources.
func (f *FD) Close() error {
	return f.impl.close()
}

// platformFD is implemented per-OS in wakeup_linux.go / wakeup_darwin.go /
// wakeup_windows.go, mirroring the teacher's createWakeFd/closeWakeFd split.
type platformFD interface {
	handle() uintptr
	notify()
	drain()
	close() error
}
