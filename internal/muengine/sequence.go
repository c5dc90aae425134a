package muengine

// sequenceKernel forwards the run to its single successor unchanged.
// No state, budget 1 (§4.2).
func sequenceKernel(ctx *Context) (*Result, error) {
	return &Result{Success: true, Emit: ctx.Run}, nil
}
