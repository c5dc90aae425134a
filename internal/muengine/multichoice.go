package muengine

// multiChoiceKernel is an OR-split: every branch whose guard evaluates true
// activates. An empty result (no branch true) is an implicit termination,
// never an error (§4.2: "empty result ⇒ implicit termination").
func multiChoiceKernel(ctx *Context) (*Result, error) {
	n := ctx.Desc.BranchCount
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
		return &Result{Success: true, LaneActivation: activation}, nil
	}
	return &Result{Success: true, Emit: ctx.Run, LaneActivation: activation}, nil
}
