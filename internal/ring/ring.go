package ring

import (
	"github.com/knhk/core/internal/triple"
)

// Ring is a fixed-depth, pre-allocated collection of Slots indexed by
// tick modulo depth. One Ring instance backs one shard's Δ-ring (ingested
// work awaiting a fiber) or A-ring (emitted assertions awaiting EMIT);
// both use the identical slot-state machine, generalized from the
// teacher's internal/ringbuf/reader.go single-reader consumer loop.
type Ring struct {
	slots []Slot
	depth uint64
}

// New constructs a Ring with the given depth. depth must be a power of two
// so that tick-to-index reduces to a mask, matching the teacher's
// ringbuf.Reader assumption about its underlying kernel ring.
func New(depth int) *Ring {
	if depth <= 0 || depth&(depth-1) != 0 {
		panic("ring: depth must be a positive power of two")
	}
	return &Ring{
		slots: make([]Slot, depth),
		depth: uint64(depth),
	}
}

func (r *Ring) index(tick uint64) uint64 { return tick & (r.depth - 1) }

// Depth returns the ring's slot count.
func (r *Ring) Depth() int { return int(r.depth) }

// Enqueue writes run into the slot for tick. Fails with RingBusy if that
// slot is not currently Empty — the producer (INGEST, or a fiber emitting
// into the A-ring) must back off and retry on the next tick rather than
// block (§4.3).
func (r *Ring) Enqueue(tick, cycleID uint64, run []triple.Triple) error {
	s := &r.slots[r.index(tick)]
	if err := s.AcquireWrite(); err != nil {
		return err
	}
	if err := s.CommitWrite(cycleID, tick, run); err != nil {
		return err
	}
	return nil
}

// Dequeue acquires the Ready slot for tick for reading. It returns
// (nil, false) if the slot is not Ready — "Dequeue from non-Ready returns
// Empty" (§4.3) — never an error, since an empty ring is a steady-state
// condition, not a fault.
func (r *Ring) Dequeue(tick uint64) (*Slot, bool) {
	s := &r.slots[r.index(tick)]
	if !s.AcquireRead() {
		return nil, false
	}
	return s, true
}

// Release ends a read lease acquired via Dequeue, returning the slot to
// Empty so a future tick may reuse it.
func (r *Ring) Release(tick uint64) {
	r.slots[r.index(tick)].ReleaseRead()
}

// Slot exposes the raw slot for tick without any state transition — used
// by diagnostics and by tests asserting on slot state directly.
func (r *Ring) Slot(tick uint64) *Slot {
	return &r.slots[r.index(tick)]
}

// PendingCount reports how many slots are Ready (enqueued, awaiting a
// reader) across the whole ring — a cheap run-length bound check for the
// fiber scheduler (§8.1: "the number of outstanding Ready slots on any ring
// never exceeds the ring's depth").
func (r *Ring) PendingCount() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].state.Load() == Ready {
			n++
		}
	}
	return n
}
