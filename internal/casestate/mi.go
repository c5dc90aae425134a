package casestate

import (
	"sync"

	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/pattern"
)

// MIStatus is the lifecycle of one Multiple-Instance spawn group.
type MIStatus uint8

const (
	Spawned MIStatus = iota
	Running
	Synced
	Cancelled
)

func (s MIStatus) String() string {
	switch s {
	case Spawned:
		return "Spawned"
	case Running:
		return "Running"
	case Synced:
		return "Synced"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// MI tracks one Multiple-Instance group: a fixed total of spawned
// instances, which complete independently, synced under one of the four
// SyncMode disciplines (All, Any, N-of-M, FireAndForget).
type MI struct {
	mu        sync.Mutex
	CaseID    string
	Total     int
	Threshold int
	Mode      pattern.SyncMode

	completed map[int]bool
	status    MIStatus
}

// NewMI constructs an MI group of total instances.
func NewMI(caseID string, total, threshold int, mode pattern.SyncMode) *MI {
	return &MI{
		CaseID:    caseID,
		Total:     total,
		Threshold: threshold,
		Mode:      mode,
		completed: make(map[int]bool, total),
		status:    Spawned,
	}
}

// Complete marks instance as finished. Returns synced=true exactly once,
// on the transition that first satisfies the group's sync mode.
func (m *MI) Complete(instance int) (synced bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == Synced || m.status == Cancelled {
		return false, nil
	}
	if instance < 0 || instance >= m.Total {
		return false, errs.MIBoundExceeded("MI completion from out-of-range instance")
	}
	if m.completed[instance] {
		return false, nil
	}
	m.completed[instance] = true
	m.status = Running

	if m.satisfied() {
		m.status = Synced
		return true, nil
	}
	return false, nil
}

func (m *MI) satisfied() bool {
	n := len(m.completed)
	switch m.Mode {
	case pattern.SyncAny:
		return n >= 1
	case pattern.SyncNOfM:
		return n >= m.Threshold
	case pattern.SyncFireAndForget:
		return true
	default: // SyncAll
		return n >= m.Total
	}
}

// Cancel terminates the group without syncing — used when a
// Multiple-Instance group is superseded (e.g. an enclosing Discriminator
// already fired).
func (m *MI) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Synced {
		m.status = Cancelled
	}
}

// Status reports the group's current lifecycle stage.
func (m *MI) Status() MIStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// CompletedCount reports how many distinct instances have completed.
func (m *MI) CompletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completed)
}
