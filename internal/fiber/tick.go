package fiber

import (
	"github.com/google/uuid"

	"github.com/knhk/core/internal/casestate"
	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/triple"
)

// Tick runs one iteration of the fiber's per-tick contract (§4.4):
//
//  1. Acquire the Δ-slot for this tick. An Empty slot means idle — returns
//     (nil, nil).
//  2. Bounds-check the run length.
//  3. Look up the hook by predicate.
//  4. Dispatch the μ-engine, measuring elapsed ticks.
//  5. If elapsed exceeds the Chatman Constant, record a budget violation
//     and park remaining work.
//  6. Enqueue the resulting A-slot and receipt fragment.
//
// Tick never blocks and never panics. Budget overruns, kernel parks and
// A-ring contention park the run and mark the returned receipt; other
// pattern failures set the receipt's ErrorTag without parking; a missing hook
// or a kernel error parks the run and returns the error without a receipt;
// an empty or over-K run returns MalformedRun without parking.
func (f *Fiber) Tick(tick uint64) (*receipt.Receipt, error) {
	slot, ok := f.Delta.Dequeue(tick)
	if !ok {
		return nil, nil // idle: nothing Ready for this tick
	}
	defer f.Delta.Release(tick)

	if slot.Len == 0 || slot.Len > pattern.MaxLanes {
		return nil, errs.MalformedRun("run is empty or exceeds K lanes")
	}

	run := slot.Triples()
	predicate := run[0].P

	hook, ok := f.Registry.Lookup(predicate)
	if !ok {
		f.park(ParkedRecord{
			Reason: "MissingHook", ShardID: f.ShardID, Tick: tick, CycleID: slot.CycleID,
			Predicate: predicate, Run: run,
		})
		return nil, errs.MissingHook("no hook registered for predicate")
	}

	ctx := f.buildContext(slot.CycleID, predicate, run, int(slot.Flags[0]), hook)

	start := f.Meter()
	result, kernelErr := f.dispatch(hook, ctx)
	elapsed := int(f.Meter() - start)

	if kernelErr == nil && result != nil && result.Success {
		f.recordJoinTarget(slot.CycleID, hook, result)
	}

	rec := &receipt.Receipt{
		CycleID:         slot.CycleID,
		ShardID:         f.ShardID,
		HookFingerprint: predicate,
		TickSpan:        uint32(elapsed),
		LanesTouched:    uint32(slot.Len),
		PatternTag:      hook.KernelKind,
	}
	idBytes, _ := uuid.New().MarshalBinary()
	copy(rec.ReceiptID[:], idBytes)

	if kernelErr != nil {
		// A kernel-level Go error is always fatal to the shard (§4.2:
		// "A guard-time violation ... is fatal to the shard").
		f.park(ParkedRecord{Reason: "FatalShardError", ShardID: f.ShardID, Tick: tick, CycleID: slot.CycleID, Predicate: predicate, Run: run})
		return nil, kernelErr
	}

	if elapsed > pattern.ChatmanConstant {
		rec.ErrorTag = "BudgetViolation"
		rec.Parked = true
		f.park(ParkedRecord{Reason: "BudgetViolation", ShardID: f.ShardID, Tick: tick, CycleID: slot.CycleID, Predicate: predicate, Run: run})
		return rec, nil
	}

	if result.Parked {
		rec.ErrorTag = result.ErrorTag
		rec.Parked = true
		f.park(ParkedRecord{Reason: result.ErrorTag, ShardID: f.ShardID, Tick: tick, CycleID: slot.CycleID, Predicate: predicate, Run: run, PartialDesc: result.ParkReason})
		return rec, nil
	}

	if !result.Success {
		rec.ErrorTag = result.ErrorTag
	}

	if len(result.Emit) > 0 {
		if err := f.Asserted.Enqueue(tick, slot.CycleID, result.Emit); err != nil {
			// A-ring contention parks the assertion without discarding the
			// receipt — the chain still advances (§9 Open Question decision).
			rec.Parked = true
			f.park(ParkedRecord{Reason: "RingBusy", ShardID: f.ShardID, Tick: tick, CycleID: slot.CycleID, Predicate: predicate, Run: result.Emit})
		}
	}

	return rec, nil
}

func (f *Fiber) park(record ParkedRecord) {
	if f.Warm != nil {
		f.Warm.Park(record)
	}
}

// dispatch runs hook's kernel against ctx. Arbitrary-Cycles is driven in an
// internal loop: each pass that the hook's own guard votes to continue
// takes the back-edge again, incrementing ctx.CycleDepth for real from the
// fiber's own iteration count rather than a value nothing ever sets. The
// loop stops the first pass the kernel itself parks (CycleDepth would
// exceed the Chatman Constant), errors, fails, or the guard votes to stop.
func (f *Fiber) dispatch(hook *hookregistry.Hook, ctx *muengine.Context) (*muengine.Result, error) {
	if hook.KernelKind != pattern.ArbitraryCycles || hook.Guard == nil {
		return f.Engine.Dispatch(hook.KernelKind, ctx)
	}

	for {
		result, err := f.Engine.Dispatch(hook.KernelKind, ctx)
		if err != nil || result.Parked || !result.Success {
			return result, err
		}
		again, guardErr := hook.Guard(ctx.Run[0])
		if guardErr != nil || !again {
			return result, nil
		}
		ctx.CycleDepth++
	}
}

// recordJoinTarget, for a Parallel-Split/Multi-Choice result, remembers how
// many lanes it actually activated against the downstream Synchronizing-
// Merge predicate its descriptor names, so that Join's anticipated-arrival
// threshold reflects what was actually produced rather than the split's
// static declared branch count.
func (f *Fiber) recordJoinTarget(cycleID uint64, hook *hookregistry.Hook, result *muengine.Result) {
	if hook.KernelKind != pattern.ParallelSplit && hook.KernelKind != pattern.MultiChoice {
		return
	}
	target := hook.Descriptor.JoinTarget
	if target == 0 {
		return
	}
	n := 0
	for _, active := range result.LaneActivation {
		if active {
			n++
		}
	}
	f.barriers.anticipated[barrierKey(cycleID, target)] = n
}

// buildContext assembles the muengine.Context appropriate to hook's
// pattern kind, lazily creating any Join/MI barrier state this predicate
// needs. The (cycle, predicate) pair stands in for per-case identity in
// this implementation — a real deployment keys barriers by the case id
// carried alongside the run, which this package does not otherwise need.
func (f *Fiber) buildContext(cycleID, predicate uint64, run []triple.Triple, lane int, hook *hookregistry.Hook) *muengine.Context {
	ctx := &muengine.Context{
		CaseID: barrierKey(cycleID, predicate),
		Lane:   lane,
		Run:    run,
		Desc:   hook.Descriptor,
	}

	switch hook.KernelKind {
	case pattern.Synchronization, pattern.SynchronizingMerge, pattern.Discriminator:
		ctx.Join = f.joinFor(cycleID, predicate, hook.KernelKind, hook.Descriptor)
	case pattern.MultipleInstance:
		ctx.MI = f.miFor(cycleID, predicate, hook.Descriptor)
	}
	return ctx
}

func (f *Fiber) joinFor(cycleID, predicate uint64, kind pattern.Tag, desc *pattern.Descriptor) *casestate.Join {
	key := barrierKey(cycleID, predicate)
	if j, ok := f.barriers.joins[key]; ok {
		return j
	}

	branches := desc.BranchCount
	mode := desc.SyncMode
	threshold := desc.Threshold

	if kind == pattern.SynchronizingMerge {
		// Wait for what the upstream split actually produced, not its
		// declared branch count (§9 Open Question / §4.2). Lane indices
		// still bound-check against the declared branch count: the
		// activated lanes are a subset of it, not necessarily a dense
		// 0..n-1 range.
		if n, ok := f.barriers.anticipated[key]; ok {
			threshold = n
			mode = pattern.SyncNOfM
		}
	} else if threshold == 0 {
		threshold = branches
	}
	if kind == pattern.Discriminator {
		// A Discriminator fires on the first arrival whatever SyncMode the
		// descriptor carries.
		mode = pattern.SyncAny
	}

	j := casestate.NewJoin(key, predicate, branches, threshold, mode)
	f.barriers.joins[key] = j
	return j
}

func (f *Fiber) miFor(cycleID, predicate uint64, desc *pattern.Descriptor) *casestate.MI {
	key := barrierKey(cycleID, predicate)
	if m, ok := f.barriers.mis[key]; ok {
		return m
	}
	m := casestate.NewMI(key, desc.BranchCount, desc.Threshold, desc.SyncMode)
	f.barriers.mis[key] = m
	return m
}
