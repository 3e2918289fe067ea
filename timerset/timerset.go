// Package timerset implements the ordered deadline set used by a worker: an
// O(log n) min-heap of {deadline, tag} entries, ties broken by insertion
// order, deadlines measured against a monotonic clock rather than wall
// clock. Grounded on the teacher's container/heap-based timerHeap in
// eventloop/loop.go, extended with index tracking so entries can be removed
// before they fire (the teacher's heap is append/pop only).
package timerset

import (
	"container/heap"
	"time"
)

// Tag identifies a scheduled entry, returned by Add and passed to Remove.
// Protocol cores use it to key their own bookkeeping (e.g. REQ's resend
// timer, SURVEYOR's deadline).
type Tag uint64

type entry struct {
	tag      Tag
	deadline time.Time
	seq      uint64 // insertion order, tie-break
	index    int    // heap.Interface bookkeeping
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Set is an ordered set of {deadline, tag} items, not safe for concurrent
// use — each worker owns exactly one Set and touches it only from its own
// goroutine, per the FSM-pinning rule.
type Set struct {
	h       entryHeap
	byTag   map[Tag]*entry
	nextTag Tag
	seq     uint64
	now     func() time.Time
}

// New creates an empty timer set. now defaults to time.Now if nil; tests
// substitute a controllable clock.
func New(now func() time.Time) *Set {
	if now == nil {
		now = time.Now
	}
	return &Set{byTag: make(map[Tag]*entry), now: now}
}

// Add schedules a new entry to fire after delta and returns its tag.
func (s *Set) Add(delta time.Duration) Tag {
	s.nextTag++
	tag := s.nextTag
	e := &entry{tag: tag, deadline: s.now().Add(delta), seq: s.seq}
	s.seq++
	heap.Push(&s.h, e)
	s.byTag[tag] = e
	return tag
}

// Remove cancels a pending entry. A removed timer never fires. Removing an
// unknown or already-fired tag is a no-op, matching the FSM framework's
// idempotent-stop convention.
func (s *Set) Remove(tag Tag) {
	e, ok := s.byTag[tag]
	if !ok {
		return
	}
	delete(s.byTag, tag)
	heap.Remove(&s.h, e.index)
}

// Timeout returns the number of milliseconds until the next entry expires,
// or -1 if the set is empty (meaning "wait indefinitely").
func (s *Set) Timeout() int {
	if s.h.Len() == 0 {
		return -1
	}
	d := s.h[0].deadline.Sub(s.now())
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms <= 0 {
		return 1 // round a sub-millisecond remainder up, never busy-loop
	}
	return int(ms)
}

// Expired pops and returns the tag of the earliest entry if it has reached
// its deadline, and true. If the earliest entry has not yet expired, or the
// set is empty, returns (0, false).
func (s *Set) Expired() (Tag, bool) {
	if s.h.Len() == 0 {
		return 0, false
	}
	if s.h[0].deadline.After(s.now()) {
		return 0, false
	}
	e := heap.Pop(&s.h).(*entry)
	delete(s.byTag, e.tag)
	return e.tag, true
}

// Len reports the number of pending entries.
func (s *Set) Len() int {
	return s.h.Len()
}
