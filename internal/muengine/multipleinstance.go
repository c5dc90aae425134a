package muengine

import "github.com/knhk/core/internal/triple"

// multipleInstanceKernel fans out to n instances from a finite set. It
// only covers the spawn half of the pattern's budget (§4.2: "2 (spawn
// only)"); completion and the sync-mode predicate are driven by
// casestate.MI.Complete as each spawned instance's own Δ-slot finishes,
// outside this kernel's tick budget.
func multipleInstanceKernel(ctx *Context) (*Result, error) {
	n := ctx.Desc.BranchCount
	if n <= 0 {
		n = 1
	}

	activation := make([]bool, n)
	emit := make([]triple.Triple, 0, n*len(ctx.Run))
	for i := range activation {
		activation[i] = true
		emit = append(emit, ctx.Run...)
	}

	return &Result{Success: true, Emit: emit, LaneActivation: activation}, nil
}
