// Package muengine is the branchless pattern dispatcher: a fixed function
// table indexed directly by pattern.Tag executes one validated run against
// one Δ-slot within the tick budget (SPEC_FULL.md §4.2). The "minimal
// perfect hash" the spec calls for is the identity function over the dense
// Tag space — dispatch is a direct array index, never a map lookup or a
// type switch.
//
// Grounded on the teacher's internal/plan/sop_graph.go decision tables (one
// function per structurally distinct graph operation) and
// internal/circuitbreaker's State-enum-with-String() idiom for PatternResult's
// error tagging.
package muengine

import (
	"fmt"

	"github.com/knhk/core/internal/casestate"
	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/triple"
)

// Context is everything one kernel invocation needs. Fields not relevant to
// a given pattern are left at their zero value; each kernel reads only the
// fields its semantics require.
type Context struct {
	Tick    uint64
	CaseID  string
	Lane    int // arrival lane for joins, discriminator arrivals, MI instance index
	Run     []triple.Triple
	Desc    *pattern.Descriptor
	Guards  []hookregistry.GuardFunc // one per outgoing branch, ExclusiveChoice/MultiChoice/ParallelSplit

	Join *casestate.Join // Synchronization, Synchronizing-Merge, Discriminator
	MI   *casestate.MI   // Multiple-Instance

	ArrivalsThisTick int // Simple-Merge concurrency check
	CycleDepth       int // Arbitrary-Cycles: iterations already taken this tick
	ElapsedTicks     int // Deferred-Choice: ticks spent waiting so far
	EventFired       bool // Deferred-Choice: a watched event matched this tick
}

// Result is the outcome of one kernel invocation (§4.2: "(a) updated lane
// activation, (b) zero or more A-slot entries, (c) optional join/MI state
// mutations, (d) a receipt fragment" — the receipt fragment itself is
// assembled by the fiber from this Result, not carried here).
type Result struct {
	Success        bool
	ErrorTag       string
	Emit           []triple.Triple
	LaneActivation []bool
	JoinFired      bool
	MIFired        bool
	Parked         bool
	ParkReason     string
}

// KernelFunc is one pattern's dispatch entry.
type KernelFunc func(ctx *Context) (*Result, error)

// Engine holds the fixed function table, one entry per pattern.Tag.
type Engine struct {
	table [11]KernelFunc
}

// New builds an Engine with all eleven pattern kernels wired.
func New() *Engine {
	e := &Engine{}
	e.table[pattern.Sequence] = sequenceKernel
	e.table[pattern.ParallelSplit] = parallelSplitKernel
	e.table[pattern.Synchronization] = synchronizationKernel
	e.table[pattern.ExclusiveChoice] = exclusiveChoiceKernel
	e.table[pattern.SimpleMerge] = simpleMergeKernel
	e.table[pattern.MultiChoice] = multiChoiceKernel
	e.table[pattern.SynchronizingMerge] = synchronizingMergeKernel
	e.table[pattern.Discriminator] = discriminatorKernel
	e.table[pattern.ArbitraryCycles] = arbitraryCyclesKernel
	e.table[pattern.DeferredChoice] = deferredChoiceKernel
	e.table[pattern.MultipleInstance] = multipleInstanceKernel
	return e
}

// Dispatch runs the kernel for tag against ctx. An unknown or unwired tag
// is a FatalShardError — §4.2: "A guard-time violation (run too long,
// unknown pattern tag) is fatal to the shard".
func (e *Engine) Dispatch(tag pattern.Tag, ctx *Context) (*Result, error) {
	if !tag.IsValid() {
		return nil, errs.MissingHook(fmt.Sprintf("unknown pattern tag %d", tag))
	}
	fn := e.table[tag]
	if fn == nil {
		return nil, errs.MissingHook(fmt.Sprintf("no kernel wired for tag %s", tag))
	}
	return fn(ctx)
}
