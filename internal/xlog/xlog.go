// Package xlog provides the package-wide structured logger used across
// the socket, worker, endpoint and transport packages.
//
// Grounded on the teacher's eventloop package's logging conventions (a
// package-level logger set once at startup, a "category" field tagging
// which subsystem emitted the entry, lazy level checks before building
// fields) but backed directly by zerolog rather than a hand-rolled
// writer, since zerolog is already the wire-format/level engine this
// module depends on.
package xlog

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	base    = zerolog.New(os.Stderr).With().Timestamp().Logger()
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// SetLogger replaces the global base logger, e.g. to redirect output or
// change the sink's encoding. Safe for concurrent use.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

// SetEnabled toggles logging globally. Disabling is cheaper than setting
// the level to zerolog.Disabled on hot paths that check Enabled first.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled reports whether logging is currently turned on.
func Enabled() bool {
	return enabled.Load()
}

// For returns a logger scoped to category, a short subsystem tag such as
// "worker", "fsm", "inproc" or "socket". Callers should hold the result
// for the lifetime of the owning component rather than calling For on
// every log statement.
func For(category string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("category", category).Logger()
}
