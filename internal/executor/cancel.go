package executor

import (
	"context"
	"os"
	"os/signal"

	"github.com/sdboyer/constext"
)

// WithInterrupt composes parent with a context that cancels on SIGINT,
// using constext.Cons to union the two cancellation sources rather than
// layering context.WithCancel by hand, so either an operator's Ctrl-C or
// an upstream deadline can cancel the same in-flight build.
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt)
	cc, cancel := constext.Cons(parent, sigCtx)
	return cc, func() {
		cancel()
		stop()
	}
}
