package httpx

import (
	"context"
	"time"
)

// InactivityGuard cancels a stream's context when no frame arrives within
// the configured window. Streams have no overall timeout, so this is the
// only liveness bound they get: the stream loop calls Touch after every
// frame, and a stalled connection is torn down by the context cancellation,
// which unblocks the pending body read.
type InactivityGuard struct {
	timer   *time.Timer
	timeout time.Duration
	cancel  context.CancelFunc
}

// NewInactivityGuard derives a context that is cancelled after timeout of
// inactivity. A zero or negative timeout disables the guard and returns the
// context unchanged with a no-op guard.
func NewInactivityGuard(ctx context.Context, timeout time.Duration) (context.Context, *InactivityGuard) {
	if timeout <= 0 {
		return ctx, &InactivityGuard{}
	}

	ctx, cancel := context.WithCancel(ctx)
	guard := &InactivityGuard{
		timeout: timeout,
		cancel:  cancel,
	}
	guard.timer = time.AfterFunc(timeout, cancel)
	return ctx, guard
}

// Touch resets the inactivity window. Call after every received frame.
func (g *InactivityGuard) Touch() {
	if g.timer != nil {
		g.timer.Reset(g.timeout)
	}
}

// Stop disables the guard and releases its resources. Safe to call on the
// no-op guard.
func (g *InactivityGuard) Stop() {
	if g.timer != nil {
		g.timer.Stop()
	}
	if g.cancel != nil {
		g.cancel()
	}
}
