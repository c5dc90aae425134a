package muengine

// simpleMergeKernel is a pass-through that forbids concurrent arrivals:
// more than one lane arriving in the same tick is a MergeContention — a
// non-fatal PatternError recorded on the Result and surfaced on the
// receipt, never returned as a Go error (§4.2 Edge policies, §7: pattern
// errors "surfaced on the receipt; execution continues").
func simpleMergeKernel(ctx *Context) (*Result, error) {
	if ctx.ArrivalsThisTick > 1 {
		return &Result{Success: false, ErrorTag: "MergeContention"}, nil
	}
	return &Result{Success: true, Emit: ctx.Run}, nil
}
