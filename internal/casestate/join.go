// Package casestate tracks the long-lived state that spans multiple ticks
// for a case: join barriers (Synchronization, Synchronizing-Merge,
// Discriminator) and multiple-instance bookkeeping (SPEC_FULL.md §4.2,
// "Join State" and "MI State"). Both machines accumulate per-lane signals
// the same way the teacher's internal/escrow/gate.go accumulates its
// tri-factor Identity/Jury/Entropy signals: arrivals are recorded under a
// lock, and the barrier fires exactly once, the instant its threshold is
// first met.
package casestate

import (
	"sync"

	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/pattern"
)

// JoinStatus is the lifecycle of one join barrier.
type JoinStatus uint8

const (
	Pristine JoinStatus = iota
	PartiallyArrived
	Activated
)

func (s JoinStatus) String() string {
	switch s {
	case Pristine:
		return "Pristine"
	case PartiallyArrived:
		return "PartiallyArrived"
	case Activated:
		return "Activated"
	default:
		return "Unknown"
	}
}

// Join is the barrier state for one (case, predicate) pair shared by the
// Synchronization, Synchronizing-Merge and Discriminator kernels. Lanes
// arrive independently and possibly out of order; the barrier fires the
// first time the configured threshold is met and is inert afterward.
type Join struct {
	mu        sync.Mutex
	CaseID    string
	Predicate uint64
	Mode      pattern.SyncMode
	Threshold int
	Branches  int

	arrived map[int]bool
	status  JoinStatus
}

// NewJoin constructs a join barrier for branches lanes under mode, firing
// once threshold lanes (for SyncNOfM) or all/any lanes have arrived.
func NewJoin(caseID string, predicate uint64, branches, threshold int, mode pattern.SyncMode) *Join {
	return &Join{
		CaseID:    caseID,
		Predicate: predicate,
		Mode:      mode,
		Threshold: threshold,
		Branches:  branches,
		arrived:   make(map[int]bool, branches),
		status:    Pristine,
	}
}

// Arrive records lane's arrival. Returns fired=true exactly once, on the
// transition that first satisfies the barrier's mode; duplicate arrivals
// on a lane already recorded are idempotent no-ops (§9 Open Question
// decision: duplicate arrivals at the same lane never raise
// MergeContention — that error is reserved for Simple-Merge's
// distinct-lane race).
func (j *Join) Arrive(lane int) (fired bool, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status == Activated {
		return false, nil
	}
	if lane < 0 || lane >= j.Branches {
		return false, errs.MalformedRun("join arrival from out-of-range lane")
	}
	if j.arrived[lane] {
		return false, nil // idempotent repeat arrival
	}
	j.arrived[lane] = true

	if j.status == Pristine {
		j.status = PartiallyArrived
	}

	if j.satisfied() {
		j.status = Activated
		return true, nil
	}
	return false, nil
}

func (j *Join) satisfied() bool {
	n := len(j.arrived)
	switch j.Mode {
	case pattern.SyncAny:
		return n >= 1
	case pattern.SyncNOfM:
		return n >= j.Threshold
	case pattern.SyncFireAndForget:
		return true
	default: // SyncAll
		return n >= j.Branches
	}
}

// Status reports the barrier's current lifecycle stage.
func (j *Join) Status() JoinStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// ArrivedCount reports how many distinct lanes have arrived so far.
func (j *Join) ArrivedCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.arrived)
}

// Reset clears a join barrier for reuse on the next cycle through an
// Arbitrary-Cycles backedge — the same barrier identity (case, predicate)
// can fire repeatedly across cycles.
func (j *Join) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.arrived = make(map[int]bool, j.Branches)
	j.status = Pristine
}
