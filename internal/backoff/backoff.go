// Package backoff computes the reconnect delay for an endpoint whose
// connection attempt failed: exponential growth from RECONNECT_IVL,
// doubling on each consecutive failure, clamped to RECONNECT_IVL_MAX, and
// reset to the floor on a successful connect.
//
// Grounded on the teacher's catrate package's duration-bookkeeping style
// (time.Duration-keyed state, no wall-clock assumptions), scaled down from
// its sliding-window rate limiter to the single-counter backoff this
// spec's reconnect-ivl option pair calls for.
package backoff

import "time"

// Calculator tracks one endpoint's current backoff state.
type Calculator struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// New constructs a Calculator. If max < initial, max is raised to match
// (a single fixed delay, never growing).
func New(initial, max time.Duration) *Calculator {
	if max < initial {
		max = initial
	}
	return &Calculator{initial: initial, max: max, current: initial}
}

// Next returns the delay to wait before the next attempt, then doubles
// the internal counter (clamped to max) for the attempt after that.
func (c *Calculator) Next() time.Duration {
	d := c.current
	next := c.current * 2
	if next > c.max || next <= 0 { // guard against overflow wraparound
		next = c.max
	}
	c.current = next
	return d
}

// Reset returns the counter to its initial value, called after a
// successful connect.
func (c *Calculator) Reset() {
	c.current = c.initial
}
