package muengine

import "github.com/knhk/core/internal/errs"

// synchronizingMergeKernel waits for every thread that was actually
// produced upstream — unlike Synchronization, the expected arrival count
// is the anticipated-arrival count set when the Join was created (by
// whichever Parallel-Split or Multi-Choice upstream determined how many
// branches actually fired), not the branch's static declared count
// (§4.2: "tracks anticipated arrivals").
func synchronizingMergeKernel(ctx *Context) (*Result, error) {
	if ctx.Join == nil {
		return nil, errs.MissingHook("synchronizing-merge kernel requires Join state")
	}

	fired, err := ctx.Join.Arrive(ctx.Lane)
	if err != nil {
		return nil, err
	}
	if fired {
		return &Result{Success: true, Emit: ctx.Run, JoinFired: true}, nil
	}
	return &Result{Success: true}, nil
}
