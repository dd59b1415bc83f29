package httpapi

import (
	"context"
)

// serverBaseCtx is canceled when the daemon begins shutting down.
var serverBaseCtx = context.Background()

// SetBaseContext installs the shutdown context. nil restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// suggestContext derives the per-call context from the request so its values
// (request ID, deadline) survive, and cancels it early if base is done.
func suggestContext(req, base context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
