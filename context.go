package scalesock

import (
	"github.com/joeycumines/scalesock/corectx"
	"github.com/joeycumines/scalesock/pool"
)

// Context is the process-wide runtime a Socket is constructed against:
// the worker pool and the handle table mapping integer handles to
// sockets. Re-exported from corectx so callers of this package never
// need to import it directly.
type Context = corectx.Context

// ContextOption configures a Context at construction time.
type ContextOption = corectx.Option

// WithPoolSize sets the number of workers a new Context's pool runs.
// Defaults to one.
func WithPoolSize(n int) ContextOption {
	return corectx.WithPoolOptions(pool.WithSize(n))
}

// NewContext constructs a private Context. Call Shutdown when done; most
// programs should prefer DefaultContext instead.
func NewContext(opts ...ContextOption) (*Context, error) {
	return corectx.New(opts...)
}

// DefaultContext returns the process-wide singleton Context, constructed
// on first call with a single-worker pool.
func DefaultContext() (*Context, error) {
	return corectx.Default()
}
