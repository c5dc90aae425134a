// Package bufferpool provides a fixed-inventory, zero-allocation-after-
// construction pool of reusable buffers: Δ-slot staging buffers and
// receipt fragments (SPEC_FULL.md §4.6). Exhaustion returns PoolStarved
// rather than growing the pool or blocking forever — the hot path never
// allocates and never waits past budget.
//
// Structurally a direct generalization of the teacher's
// internal/ghostpool.PoolManager: a buffered channel of available items
// plus a mutex-guarded map of checked-out ones. Ghostpool pre-warms Docker
// containers on a background ticker; here the inventory is static Go
// values, so there is no maintainPool goroutine — the entire point of the
// hot-path pool is that nothing ever needs to be created after startup.
package bufferpool

import (
	"sync"

	"github.com/knhk/core/internal/errs"
)

// Pool is a fixed-capacity pool of *T. New instances are created only at
// construction time; Get/Put never allocate. The available set is a
// buffered channel, so items are handed out first-in-first-out: Get
// returns the item that has been idle longest, not the one most recently
// Put back.
type Pool[T any] struct {
	mu        sync.Mutex
	available chan *T
	capacity  int
	checkedOut map[*T]bool
}

// New constructs a Pool of capacity items, each produced once by factory.
func New[T any](capacity int, factory func() *T) *Pool[T] {
	p := &Pool[T]{
		available:  make(chan *T, capacity),
		capacity:   capacity,
		checkedOut: make(map[*T]bool, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.available <- factory()
	}
	return p
}

// Get checks out one item without blocking. Returns PoolStarved if the
// pool is currently exhausted — the caller (a fiber past its own budget
// accounting) treats this the same as any other flow error: park and
// retry next tick, never block.
func (p *Pool[T]) Get() (*T, error) {
	select {
	case v := <-p.available:
		p.mu.Lock()
		p.checkedOut[v] = true
		p.mu.Unlock()
		return v, nil
	default:
		return nil, errs.PoolStarved("buffer pool exhausted")
	}
}

// Put returns an item to the pool. reset, if non-nil, is invoked on v
// before it re-enters the available set, so callers can wipe buffer
// contents without the pool needing to know T's shape.
func (p *Pool[T]) Put(v *T, reset func(*T)) {
	if reset != nil {
		reset(v)
	}
	p.mu.Lock()
	delete(p.checkedOut, v)
	p.mu.Unlock()
	p.available <- v
}

// Stats mirrors the shape of ghostpool's Stats(), reporting checked-out vs
// idle inventory for telemetry.
func (p *Pool[T]) Stats() (checkedOut, idle, capacity int) {
	p.mu.Lock()
	checkedOut = len(p.checkedOut)
	p.mu.Unlock()
	return checkedOut, len(p.available), p.capacity
}
