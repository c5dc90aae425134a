package muengine

import "github.com/knhk/core/internal/errs"

// synchronizationKernel is an AND-join: it fires the first tick every
// expected arrival has been seen. Requires a Join State shared across all
// arrivals at this predicate for the case (§4.2).
func synchronizationKernel(ctx *Context) (*Result, error) {
	if ctx.Join == nil {
		return nil, errs.MissingHook("synchronization kernel requires Join state")
	}

	fired, err := ctx.Join.Arrive(ctx.Lane)
	if err != nil {
		return nil, err
	}
	if fired {
		return &Result{Success: true, Emit: ctx.Run, JoinFired: true}, nil
	}
	return &Result{Success: true}, nil // still waiting on other arrivals
}
