package muengine

// parallelSplitKernel activates all N outgoing edges. When per-branch
// guards are configured (ctx.Guards non-nil) only guard-true branches
// activate; zero true branches falls through to the registration-time edge
// policy: implicit termination, or a configured Simple-Merge successor
// (§4.2 Edge policies).
func parallelSplitKernel(ctx *Context) (*Result, error) {
	n := ctx.Desc.BranchCount
	if ctx.Guards == nil {
		activation := make([]bool, n)
		for i := range activation {
			activation[i] = true
		}
		return &Result{Success: true, Emit: ctx.Run, LaneActivation: activation}, nil
	}

	activation := make([]bool, n)
	anyTrue := false
	for i, g := range ctx.Guards {
		if g == nil {
			continue
		}
		ok, err := g(ctx.Run[0])
		if err != nil {
			return &Result{Success: false, ErrorTag: "GuardEvaluationFailed"}, nil
		}
		activation[i] = ok
		anyTrue = anyTrue || ok
	}

	if !anyTrue {
		return zeroTrueBranchesResult(ctx, activation)
	}
	return &Result{Success: true, Emit: ctx.Run, LaneActivation: activation}, nil
}
