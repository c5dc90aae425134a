package muengine

import (
	"github.com/knhk/core/internal/casestate"
	"github.com/knhk/core/internal/errs"
)

// discriminatorKernel fires on the first of N arrivals and suppresses the
// rest until the next reset (the Join's Reset, called at the next cycle
// boundary that re-arms this predicate). Suppressed arrivals are not
// errors: they carry the DiscriminatorReset annotation on the Result
// (§8: "exactly one activation; remaining arrivals suppressed until reset").
func discriminatorKernel(ctx *Context) (*Result, error) {
	if ctx.Join == nil {
		return nil, errs.MissingHook("discriminator kernel requires Join state")
	}

	fired, err := ctx.Join.Arrive(ctx.Lane)
	if err != nil {
		return nil, err
	}
	if fired {
		return &Result{Success: true, Emit: ctx.Run, JoinFired: true}, nil
	}
	if ctx.Join.Status() == casestate.Activated {
		return &Result{Success: true, ErrorTag: "DiscriminatorReset"}, nil
	}
	return &Result{Success: true}, nil // still arming
}
