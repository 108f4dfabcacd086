package reel

import "sync/atomic"

// CancelToken is a cooperative cancellation flag shared by a render pass
// and its caller.
//
// The graph walk polls the token at every recursion step and every
// per-input iteration; a cancelled pass returns an empty table rather than
// a distinguished error. Callers that need to tell "legitimately empty"
// from "cancelled" must check the token themselves after the pass.
//
// CancelToken is safe for concurrent use. A nil *CancelToken behaves as
// never-cancelled, so passes without a caller-side flag need no sentinel.
type CancelToken struct {
	cancelled atomic.Bool
}

// Cancel requests cooperative cancellation. Safe to call more than once.
func (c *CancelToken) Cancel() {
	c.cancelled.Store(true)
}

// IsCancelled reports whether cancellation has been requested.
func (c *CancelToken) IsCancelled() bool {
	if c == nil {
		return false
	}
	return c.cancelled.Load()
}
