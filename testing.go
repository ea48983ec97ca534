//go:build linux

package aio

import (
	"context"
	"time"
)

// WaitTimeout is a convenience wrapper around Handle.Wait for tests and
// short-lived callers that want a deadline without constructing their own
// context.Context.
func WaitTimeout(h *Handle, d time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return h.Wait(ctx)
}

// WaitAll blocks until every handle in hs has resolved (or ctx is done) and
// returns their results in the same order. Useful in tests that submit a
// batch of operations and want to assert on all of them together.
func WaitAll(ctx context.Context, hs []*Handle) ([]int, [][]byte, []error) {
	ns := make([]int, len(hs))
	bufs := make([][]byte, len(hs))
	errs := make([]error, len(hs))
	for i, h := range hs {
		ns[i], bufs[i], errs[i] = h.Wait(ctx)
	}
	return ns, bufs, errs
}
