// Package corectx implements the process-wide context singleton: the
// worker pool, a handle table mapping integer socket handles to sockets
// (backed by a free-list so closed handles are recycled), a default
// initialization guard, and a global shutdown flag. Invariant: every live
// socket must close before the context itself tears down.
//
// Grounded on the teacher's registry.go (an ID-keyed table with recycling)
// and options.go's functional-options construction.
package corectx

import (
	"errors"
	"sync"

	"github.com/joeycumines/scalesock/pool"
)

// Socket is the minimal surface corectx needs from whatever concrete
// socket type the root package registers. The handle table only stores
// it: Shutdown refuses while any socket is registered and never closes
// one itself.
type Socket interface {
	Close() error
}

// Errors returned by Context operations.
var (
	ErrTerm       = errors.New("corectx: context has been shut down")
	ErrBadHandle  = errors.New("corectx: handle not found")
	ErrHasSockets = errors.New("corectx: cannot shut down with live sockets")
)

// Option configures a Context at construction time.
type Option func(*config)

type config struct {
	poolOpts []pool.Option
}

// WithPoolOptions forwards options to the underlying worker pool.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(c *config) { c.poolOpts = append(c.poolOpts, opts...) }
}

// Context is the process-wide singleton. Most programs use Default(); tests
// construct private instances with New() to avoid cross-test interference.
type Context struct {
	Pool *pool.Pool

	mu       sync.Mutex
	handles  map[int]Socket
	freeList []int
	nextID   int
	term     bool
}

// New constructs a private Context. Call Shutdown when done.
func New(opts ...Option) (*Context, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	p, err := pool.New(cfg.poolOpts...)
	if err != nil {
		return nil, err
	}
	return &Context{
		Pool:    p,
		handles: make(map[int]Socket),
	}, nil
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
	defaultErr  error
)

// Default returns the process-wide singleton Context, constructing it on
// first call with a single-worker pool.
func Default() (*Context, error) {
	defaultOnce.Do(func() {
		defaultCtx, defaultErr = New()
	})
	return defaultCtx, defaultErr
}

// Register allocates a handle for s, reusing a freed handle if one is
// available.
func (c *Context) Register(s Socket) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.term {
		return 0, ErrTerm
	}
	var id int
	if n := len(c.freeList); n > 0 {
		id = c.freeList[n-1]
		c.freeList = c.freeList[:n-1]
	} else {
		id = c.nextID
		c.nextID++
	}
	c.handles[id] = s
	return id, nil
}

// Lookup returns the socket registered under handle.
func (c *Context) Lookup(handle int) (Socket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.handles[handle]
	if !ok {
		return nil, ErrBadHandle
	}
	return s, nil
}

// Unregister releases handle back to the free-list. Call once a socket has
// fully closed.
func (c *Context) Unregister(handle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handles[handle]; !ok {
		return
	}
	delete(c.handles, handle)
	c.freeList = append(c.freeList, handle)
}

// Shutdown tears down the context: refuses while any socket is still
// registered, then stops every worker. Idempotent.
func (c *Context) Shutdown() error {
	c.mu.Lock()
	if c.term {
		c.mu.Unlock()
		return nil
	}
	if len(c.handles) > 0 {
		c.mu.Unlock()
		return ErrHasSockets
	}
	c.term = true
	c.mu.Unlock()
	c.Pool.Close()
	return nil
}

// LiveSocketCount reports how many sockets are currently registered.
func (c *Context) LiveSocketCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
