package muengine

import "github.com/knhk/core/internal/pattern"

// arbitraryCyclesKernel takes a bounded back-edge. Depth is tracked per
// tick by the caller (the fiber) and passed in via ctx.CycleDepth; once an
// iteration would exceed the Chatman Constant within one tick, the run
// parks to the warm path rather than continuing — it never aborts
// (§4.2 Edge policies, §5).
func arbitraryCyclesKernel(ctx *Context) (*Result, error) {
	if ctx.CycleDepth+1 > pattern.ChatmanConstant {
		return &Result{
			Success:    false,
			ErrorTag:   "BudgetViolation",
			Parked:     true,
			ParkReason: "arbitrary-cycles depth would exceed the Chatman Constant within one tick",
		}, nil
	}
	return &Result{Success: true, Emit: ctx.Run}, nil
}
