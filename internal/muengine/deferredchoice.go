package muengine

// deferredChoiceKernel arms watchers on an event set; the first event to
// fire wins. A timeout reaching the registered bound is itself a winning
// event — "Deferred-Choice timeout at exactly 8 ticks ⇒ fires" (§8); the
// registry rejects any timeout beyond the Chatman Constant at registration
// time, so this kernel never needs to park on timeout overflow.
func deferredChoiceKernel(ctx *Context) (*Result, error) {
	if ctx.EventFired {
		return &Result{Success: true, Emit: ctx.Run}, nil
	}
	if ctx.Desc.Timeout > 0 && ctx.ElapsedTicks >= ctx.Desc.Timeout {
		return &Result{Success: true, Emit: ctx.Run}, nil // timeout event wins
	}
	return &Result{Success: true}, nil // still armed, waiting
}
