// Package fiber is the cooperative execution unit owning one shard
// (SPEC_FULL.md §4.4). Per tick it acquires a Δ-slot, bounds-checks the
// run, looks up the predicate's hook, dispatches the μ-engine, measures
// elapsed ticks, and either enqueues an A-slot and receipt or parks the
// work to the warm path.
//
// Grounded on the teacher's internal/arbitrator/stream_handler.go
// Negotiate loop: a single-threaded receive-dispatch-forward loop with a
// non-blocking error check — generalized here to a single-threaded
// acquire-dispatch-park loop with a budget check instead of an error
// channel.
package fiber

import (
	"fmt"

	"github.com/knhk/core/internal/casestate"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/triple"
)

// TickMeter returns a monotonically increasing tick count. Fiber measures
// elapsed ticks as the delta between two reads bracketing one kernel
// dispatch (§4.4 step 4).
type TickMeter func() uint64

// WarmPath is where a fiber hands off work that cannot complete within the
// Chatman Constant. The core never awaits it (§5).
type WarmPath interface {
	Park(record ParkedRecord)
}

// ParkedRecord is the explicit message-passing handoff record for parked
// work (§9: "{reason, Δ-snapshot, partial-state}").
type ParkedRecord struct {
	Reason      string
	ShardID     uint32
	Tick        uint64
	CycleID     uint64
	Predicate   uint64
	Run         []triple.Triple
	PartialDesc string
}

// Fiber owns one shard's Δ-ring/A-ring pair and a read-only view of the
// hook registry (§5: "hook registry is read-only in hot path").
type Fiber struct {
	ShardID  uint32
	Delta    *ring.Ring
	Asserted *ring.Ring
	Registry *hookregistry.Registry
	Engine   *muengine.Engine
	Warm     WarmPath
	Meter    TickMeter

	barriers *barriers
}

// barriers holds the per-predicate Join/MI state a shard's patterns need
// across ticks. Lazily created on first arrival, as §3 specifies.
//
// anticipated records, per (cycle, downstream predicate), the actual lane
// activation count a Parallel-Split/Multi-Choice upstream produced — set
// before the fed Synchronizing-Merge's Join is created, so that Join waits
// for what was actually produced rather than the split's declared branch
// count (§4.2).
type barriers struct {
	joins       map[string]*casestate.Join
	mis         map[string]*casestate.MI
	anticipated map[string]int
}

func newBarriers() *barriers {
	return &barriers{
		joins:       make(map[string]*casestate.Join),
		mis:         make(map[string]*casestate.MI),
		anticipated: make(map[string]int),
	}
}

// New constructs a Fiber for one shard.
func New(shardID uint32, delta, asserted *ring.Ring, registry *hookregistry.Registry, engine *muengine.Engine, warm WarmPath, meter TickMeter) *Fiber {
	return &Fiber{
		ShardID:  shardID,
		Delta:    delta,
		Asserted: asserted,
		Registry: registry,
		Engine:   engine,
		Warm:     warm,
		Meter:    meter,
		barriers: newBarriers(),
	}
}

func barrierKey(cycleID, predicate uint64) string {
	return fmt.Sprintf("%d:%d", cycleID, predicate)
}
