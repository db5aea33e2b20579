// Package concurrency implements the direction-aware parallel-call
// primitives: a reusable abortable barrier and a directional mutex
// ring, plus the coordinator that owns one set of each per parallel
// CallBlock (§4.7, §5 of SPEC_FULL.md). Built on sync.Cond and
// buffered channels, the idiomatic Go translation of the retrieved
// original source's "events in a ring" thread hand-off pattern
// (DESIGN NOTES §9).
package concurrency

import (
	"errors"
	"sync"
)

// ErrAborted is returned by Barrier.Wait and Mutex.Enter once a peer
// has failed and the coordinator has called Abort; callers convert it
// into a railerr.Sympathetic error at the ast call-site, which has a
// scope to attach a trace to.
var ErrAborted = errors.New("concurrency: aborted by a peer's failure")

// Barrier is a reusable rendezvous for exactly N participants (§3's
// "Barrier instance"). Direction is irrelevant: every arrival is
// symmetric.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	waiting    int
	generation int
	broken     bool
}

// NewBarrier builds a barrier for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all n participants have called Wait for the
// current generation, then releases them all together. Returns
// ErrAborted if the barrier was broken by a peer's panic while
// waiting (or was already broken on entry).
func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		return ErrAborted
	}
	gen := b.generation
	b.waiting++
	if b.waiting == b.n {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}
	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		return ErrAborted
	}
	return nil
}

// Abort wakes every blocked Wait call with ErrAborted and marks the
// barrier permanently broken.
func (b *Barrier) Abort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken = true
	b.cond.Broadcast()
}
