package muengine

import "github.com/knhk/core/internal/pattern"

// zeroTrueBranchesResult applies Parallel-Split's registration-time edge
// policy when no branch guard evaluates true (§4.2 Edge policies, §8
// boundary behavior: "no A-slot leakage"). Multi-Choice does not use it:
// its empty result is always an implicit termination.
func zeroTrueBranchesResult(ctx *Context, activation []bool) (*Result, error) {
	switch ctx.Desc.OnZeroTrueBranches {
	case pattern.EdgeSimpleMergeFallthrough:
		return &Result{Success: true, Emit: ctx.Run, LaneActivation: activation}, nil
	default: // EdgeImplicitTermination
		return &Result{Success: true, LaneActivation: activation}, nil
	}
}
