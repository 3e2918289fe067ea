// Package policy implements the small pipe-selection helpers shared by the
// protocol cores: a load balancer and fair queue for round-robin
// send/receive, a distribution list for fan-out, a priority-ordered load
// balancer, and an exclusive single-slot variant for PAIR. Each operates
// purely on *pipe.Pipe values handed to it by a protocol core — none of
// them touch the network or the FSM framework directly.
//
// Grounded on the teacher's priority_test.go naming conventions and
// ingress.go's round-robin batch draining, adapted into the explicit
// policy vtable the spec calls for alongside the protocol capability set.
package policy

import "github.com/joeycumines/scalesock/pipe"

// LoadBalancer round-robins sends across the pipes currently considered
// writable. Used by PUSH and as the write side of REQ.
type LoadBalancer struct {
	pipes []*pipe.Pipe
	next  int
}

// Add registers p as a candidate for the next round-robin rotation.
func (lb *LoadBalancer) Add(p *pipe.Pipe) {
	lb.pipes = append(lb.pipes, p)
}

// Remove drops p from rotation.
func (lb *LoadBalancer) Remove(p *pipe.Pipe) {
	for i, q := range lb.pipes {
		if q == p {
			lb.pipes = append(lb.pipes[:i], lb.pipes[i+1:]...)
			if lb.next > i {
				lb.next--
			}
			return
		}
	}
}

// Pick returns the next pipe to send on and advances the rotation, or nil
// if there are none.
func (lb *LoadBalancer) Pick() *pipe.Pipe {
	if len(lb.pipes) == 0 {
		return nil
	}
	p := lb.pipes[lb.next%len(lb.pipes)]
	lb.next++
	return p
}

// Len reports the number of pipes currently in rotation.
func (lb *LoadBalancer) Len() int { return len(lb.pipes) }

// FairQueue round-robins receives across pipes currently considered
// readable: every readable pipe yields exactly one message before
// repeating, so a fast peer cannot starve a slow one. Used by PULL.
type FairQueue struct {
	pipes []*pipe.Pipe
	next  int
}

// Add registers p as a candidate for the receive rotation.
func (fq *FairQueue) Add(p *pipe.Pipe) {
	fq.pipes = append(fq.pipes, p)
}

// Remove drops p from rotation.
func (fq *FairQueue) Remove(p *pipe.Pipe) {
	for i, q := range fq.pipes {
		if q == p {
			fq.pipes = append(fq.pipes[:i], fq.pipes[i+1:]...)
			if fq.next > i {
				fq.next--
			}
			return
		}
	}
}

// Pick returns the next pipe to receive from and advances the rotation,
// or nil if there are none.
func (fq *FairQueue) Pick() *pipe.Pipe {
	if len(fq.pipes) == 0 {
		return nil
	}
	p := fq.pipes[fq.next%len(fq.pipes)]
	fq.next++
	return p
}

// Len reports the number of pipes currently in rotation.
func (fq *FairQueue) Len() int { return len(fq.pipes) }

// DistributionList holds every pipe currently writable and fans a send out
// to all of them, skipping ones that refuse. Used by PUB and BUS.
type DistributionList struct {
	pipes []*pipe.Pipe
}

// Add registers p as a fan-out target.
func (dl *DistributionList) Add(p *pipe.Pipe) {
	dl.pipes = append(dl.pipes, p)
}

// Remove drops p from the fan-out set.
func (dl *DistributionList) Remove(p *pipe.Pipe) {
	for i, q := range dl.pipes {
		if q == p {
			dl.pipes = append(dl.pipes[:i], dl.pipes[i+1:]...)
			return
		}
	}
}

// All returns every pipe currently registered, in insertion order.
func (dl *DistributionList) All() []*pipe.Pipe {
	return dl.pipes
}

// Len reports the number of pipes registered.
func (dl *DistributionList) Len() int { return len(dl.pipes) }

// PriorityList is a load-balancer variant ordered by a per-pipe priority
// class: lower numbers are tried first, ties rotate among themselves.
// Used by protocols honoring SNDPRIO.
type PriorityList struct {
	classes map[int]*LoadBalancer
	order   []int // sorted ascending priority classes present
}

// Add registers p under priority class prio (lower is more preferred).
func (pl *PriorityList) Add(p *pipe.Pipe, prio int) {
	if pl.classes == nil {
		pl.classes = make(map[int]*LoadBalancer)
	}
	lb, ok := pl.classes[prio]
	if !ok {
		lb = &LoadBalancer{}
		pl.classes[prio] = lb
		pl.insertOrder(prio)
	}
	lb.Add(p)
}

func (pl *PriorityList) insertOrder(prio int) {
	i := 0
	for ; i < len(pl.order); i++ {
		if pl.order[i] > prio {
			break
		}
	}
	pl.order = append(pl.order, 0)
	copy(pl.order[i+1:], pl.order[i:])
	pl.order[i] = prio
}

// Remove drops p from whichever priority class it was registered under.
func (pl *PriorityList) Remove(p *pipe.Pipe) {
	for _, lb := range pl.classes {
		lb.Remove(p)
	}
}

// Len reports the total number of pipes registered across every priority
// class.
func (pl *PriorityList) Len() int {
	n := 0
	for _, lb := range pl.classes {
		n += lb.Len()
	}
	return n
}

// Pick returns the next pipe from the lowest-numbered non-empty priority
// class, rotating within that class.
func (pl *PriorityList) Pick() *pipe.Pipe {
	for _, prio := range pl.order {
		lb := pl.classes[prio]
		if lb.Len() > 0 {
			return lb.Pick()
		}
	}
	return nil
}

// Exclusive enforces at-most-one active pipe, used by PAIR.
type Exclusive struct {
	p *pipe.Pipe
}

// Set registers p as the sole pipe. Returns false if one is already set.
func (e *Exclusive) Set(p *pipe.Pipe) bool {
	if e.p != nil {
		return false
	}
	e.p = p
	return true
}

// Clear removes p if it is the currently-set pipe.
func (e *Exclusive) Clear(p *pipe.Pipe) {
	if e.p == p {
		e.p = nil
	}
}

// Get returns the current pipe, or nil if none is set.
func (e *Exclusive) Get() *pipe.Pipe {
	return e.p
}
