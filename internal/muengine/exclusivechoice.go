package muengine

// exclusiveChoiceKernel evaluates guards in the fixed order established at
// registration and activates the first true one. All guards false is an
// implicit termination, not a protocol error — the §9 Open Question this
// repo resolves in favor of consistency with Multi-Choice's explicit empty
// result rule (see DESIGN.md).
func exclusiveChoiceKernel(ctx *Context) (*Result, error) {
	n := ctx.Desc.BranchCount
	activation := make([]bool, n)

	for i, g := range ctx.Guards {
		if g == nil {
			continue
		}
		ok, err := g(ctx.Run[0])
		if err != nil {
			return &Result{Success: false, ErrorTag: "GuardEvaluationFailed"}, nil
		}
		if ok {
			activation[i] = true
			return &Result{Success: true, Emit: ctx.Run, LaneActivation: activation}, nil
		}
	}
	return &Result{Success: true, LaneActivation: activation}, nil
}
