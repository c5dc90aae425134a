// Package ring implements the Δ-ring and A-ring: per-tick, per-shard
// Structure-of-Arrays slots with capacity K (SPEC_FULL.md §4.3). Slots are
// pre-allocated and reused across ticks — no heap traffic once a ring is
// constructed. Concurrency is mediated by an atomic slot-state machine
// (Empty → Writing → Ready → Reading → Empty) with acquire/release
// ordering, generalized from the teacher's internal/ringbuf/reader.go
// single-writer/single-reader consumer loop and from the retrieval pack's
// slotcache.Cache generation-counter discipline.
package ring

import (
	"sync/atomic"

	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/triple"
)

// State is the lifecycle stage of one slot.
type State uint32

const (
	Empty State = iota
	Writing
	Ready
	Reading
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Writing:
		return "Writing"
	case Ready:
		return "Ready"
	case Reading:
		return "Reading"
	default:
		return "Unknown"
	}
}

// padBytes is trailing padding so that, were this laid out for a vectorized
// scan over S/P/O, loads past Len would never cross a page boundary — the
// spec's "≥ 64 bytes trailing padding" requirement (§4.3).
const padBytes = 64

// Slot is one tick's SoA payload: parallel S/P/O arrays up to MaxLanes,
// plus per-lane flags and the cycle this slot belongs to.
type Slot struct {
	state State32

	S, P, O [pattern.MaxLanes]uint64
	Flags   [pattern.MaxLanes]uint8
	Len     int
	CycleID uint64
	Tick    uint64

	_pad [padBytes]byte
}

// State32 wraps atomic.Uint32 so Slot's zero value (State Empty) is usable
// without construction, matching the buffer pool's pre-allocate-at-startup
// idiom (§4.6).
type State32 struct{ v atomic.Uint32 }

func (s *State32) Load() State         { return State(s.v.Load()) }
func (s *State32) store(v State)       { s.v.Store(uint32(v)) }
func (s *State32) cas(old, new State) bool {
	return s.v.CompareAndSwap(uint32(old), uint32(new))
}

// Reset clears a slot's contents and returns it to Empty. Called only by
// the owner releasing the slot at the end of its lease.
func (s *Slot) Reset() {
	s.Len = 0
	s.CycleID = 0
	s.Tick = 0
	for i := range s.Flags {
		s.Flags[i] = 0
	}
	s.state.store(Empty)
}

// AcquireWrite transitions Empty → Writing. Returns RingBusy if the slot is
// not Empty (§4.3: "Attempting to enqueue into a non-Empty slot fails with
// RingBusy").
func (s *Slot) AcquireWrite() error {
	if !s.state.cas(Empty, Writing) {
		return errs.RingBusy("slot not empty")
	}
	return nil
}

// CommitWrite transitions Writing → Ready, publishing len triples written
// via run. Violates the single-writer invariant (a bug, not a runtime
// error) if called without a prior successful AcquireWrite.
func (s *Slot) CommitWrite(cycleID, tick uint64, run []triple.Triple) error {
	if len(run) > pattern.MaxLanes {
		return errs.RunOverlength("run exceeds K lanes")
	}
	for i, t := range run {
		s.S[i], s.P[i], s.O[i] = t.S, t.P, t.O
	}
	s.Len = len(run)
	s.CycleID = cycleID
	s.Tick = tick
	if !s.state.cas(Writing, Ready) {
		return errs.RingBusy("slot was not in Writing state at commit")
	}
	return nil
}

// Triples returns the slot's current run as a freshly allocated []triple.Triple,
// valid for the caller to read while holding the Reading lease.
func (s *Slot) Triples() []triple.Triple {
	out := make([]triple.Triple, s.Len)
	for i := 0; i < s.Len; i++ {
		out[i] = triple.Triple{S: s.S[i], P: s.P[i], O: s.O[i]}
	}
	return out
}

// AcquireRead transitions Ready → Reading. Dequeue from a non-Ready slot
// returns ok=false with no error (§4.3: "Dequeue from non-Ready returns
// Empty").
func (s *Slot) AcquireRead() (ok bool) {
	return s.state.cas(Ready, Reading)
}

// ReleaseRead transitions Reading → Empty, completing the lease.
func (s *Slot) ReleaseRead() {
	s.state.store(Empty)
}
