// Package chunk implements an immutable-after-publish byte region with an
// atomic reference count, suitable for sharing message bodies between
// messages without copying.
package chunk

import (
	"sync/atomic"
)

// Deallocator is invoked exactly once, when a Chunk's reference count drops
// to zero. It may be nil, in which case the chunk's memory is left to the
// garbage collector.
type Deallocator func(b []byte)

// Chunk is an immutable-after-publish byte region with an atomic reference
// count and an optional trailing tag. A Chunk is freed (its Deallocator
// invoked) exactly when its reference count reaches zero; concurrent AddRef
// and Release calls are safe.
//
// The zero Chunk is not valid; use New.
type Chunk struct {
	b    []byte
	tag  any
	free Deallocator
	refs atomic.Int32
}

// New creates a Chunk wrapping b with one reference held by the caller. free
// may be nil.
func New(b []byte, free Deallocator) *Chunk {
	c := &Chunk{b: b, free: free}
	c.refs.Store(1)
	return c
}

// NewWithTag is New plus an opaque trailing tag, e.g. a transport-assigned
// sequence number.
func NewWithTag(b []byte, free Deallocator, tag any) *Chunk {
	c := New(b, free)
	c.tag = tag
	return c
}

// Bytes returns the underlying byte region. The caller must not retain it
// beyond the lifetime of the reference it holds, and must not mutate it.
func (c *Chunk) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.b
}

// Len returns len(c.Bytes()).
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.b)
}

// Tag returns the chunk's trailing tag, or nil if none was set.
func (c *Chunk) Tag() any {
	if c == nil {
		return nil
	}
	return c.tag
}

// AddRef increments the reference count and returns c, for chaining at call
// sites that hand the same chunk to more than one owner.
func (c *Chunk) AddRef() *Chunk {
	if c == nil {
		return nil
	}
	if c.refs.Add(1) <= 1 {
		panic("chunk: AddRef on a chunk with zero references")
	}
	return c
}

// Release decrements the reference count, invoking the Deallocator exactly
// once when it reaches zero. Calling Release more times than there are
// references is a programming error and panics.
func (c *Chunk) Release() {
	if c == nil {
		return
	}
	n := c.refs.Add(-1)
	switch {
	case n > 0:
		return
	case n == 0:
		if c.free != nil {
			c.free(c.b)
		}
	default:
		panic("chunk: Release called more times than references held")
	}
}

// RefCount returns the current reference count, for diagnostics and tests.
func (c *Chunk) RefCount() int32 {
	if c == nil {
		return 0
	}
	return c.refs.Load()
}
