// Package pool implements the fixed-size worker pool constructed once per
// process: a fixed number of workers (one by default, configurable),
// assigning FSMs to workers round-robin at construction time. The pool
// has no timer helper of its own; timers are scheduled directly on a
// worker with worker.Worker.ScheduleTimer.
//
// Grounded on the teacher's registry.go (a process-wide table assigning
// work to slots) and options.go's functional-options construction style.
package pool

import (
	"sync/atomic"

	"github.com/joeycumines/scalesock/worker"
)

// Option configures a Pool at construction time.
type Option func(*config)

type config struct {
	size int
}

func resolveOptions(opts []Option) config {
	cfg := config{size: 1}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.size < 1 {
		cfg.size = 1
	}
	return cfg
}

// WithSize sets the number of workers. Defaults to 1.
func WithSize(n int) Option {
	return func(c *config) { c.size = n }
}

// Pool is a fixed-size set of running workers.
type Pool struct {
	workers []*worker.Worker
	next    atomic.Uint64
}

// New constructs and starts a Pool. Call Close to stop every worker.
func New(opts ...Option) (*Pool, error) {
	cfg := resolveOptions(opts)
	p := &Pool{workers: make([]*worker.Worker, 0, cfg.size)}
	for i := 0; i < cfg.size; i++ {
		w, err := worker.New()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.workers = append(p.workers, w)
		go w.Run()
	}
	return p, nil
}

// ChooseWorker returns the next worker in round-robin order. FSMs pin to
// whatever worker they are assigned at construction time and never move.
func (p *Pool) ChooseWorker() *worker.Worker {
	n := p.next.Add(1) - 1
	return p.workers[int(n)%len(p.workers)]
}

// Size reports the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Close stops every worker, blocking until each has fully wound down.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Stop()
	}
}
