//go:build linux

package aio

import (
	"context"
	"time"

	"github.com/maximmoroz/goaio/internal/registry"
)

// Handle is a single in-flight (or already resolved) read/write operation.
// It is the idiomatic-Go stand-in for a Rust future: instead of being
// polled by an executor with a Waker, callers block in Wait, which parks on
// a notify channel closed by the batch worker when the kernel reports
// completion.
type Handle struct {
	id       uint64
	op       string
	reg      *registry.Registry
	observer Observer
	start    time.Time

	// err is set instead of registering an entry when the manager was
	// already closed at submission time; reg is never consulted in that
	// case.
	err error

	resolved  bool
	outcome   registry.Outcome
	cancelled bool
	cancelErr error // ctx.Err() observed by the Wait call that cancelled
}

// Wait blocks until the operation completes, ctx is cancelled, or (for a
// Handle returned after the manager was closed) returns immediately. N is
// the number of bytes transferred; for a Read, the returned slice is the
// portion of the destination buffer actually filled, buf[:n]. Wait may be
// called more than once; later calls return the cached result.
//
// If ctx is cancelled before the operation completes, Wait marks the entry
// dropped (the same orphan semantics as Cancel: the kernel keeps writing
// into the buffer until it completes, but nothing observes the result) and
// every later Wait call on this Handle returns ctx.Err() immediately rather
// than re-polling an entry whose notifications may never arrive again.
func (h *Handle) Wait(ctx context.Context) (n int, buf []byte, err error) {
	if h.err != nil {
		return 0, nil, h.err
	}
	if h.resolved {
		return h.finalResult()
	}
	if h.cancelled {
		if h.cancelErr != nil {
			return 0, nil, h.cancelErr
		}
		return 0, nil, ctx.Err()
	}

	notify := make(chan struct{})
	for {
		outcome, ready := h.reg.Poll(h.id, notify)
		if ready {
			h.resolved = true
			h.outcome = outcome
			n, buf, err := h.finalResult()
			h.observe(n, err)
			return n, buf, err
		}
		select {
		case <-notify:
		case <-ctx.Done():
			h.reg.Dropped(h.id)
			h.cancelled = true
			h.cancelErr = ctx.Err()
			return 0, nil, h.cancelErr
		}
	}
}

func (h *Handle) finalResult() (int, []byte, error) {
	n, buf, err := h.outcome.N, h.outcome.Buf, h.outcome.Err
	if err != nil {
		err = newOperationError(h.op, err)
	}
	if err != nil {
		return 0, nil, err
	}
	if h.op == "read" {
		buf = buf[:n]
	}
	return n, buf, nil
}

func (h *Handle) observe(n int, err error) {
	if h.observer == nil {
		return
	}
	latency := time.Since(h.start)
	if h.op == "read" {
		h.observer.ObserveRead(n, latency, err)
	} else {
		h.observer.ObserveWrite(n, latency, err)
	}
}

// Cancel detaches the caller from the operation without waiting for it to
// complete. If the kernel operation is still in flight, it becomes an
// orphan: the kernel keeps writing into the buffer until it completes, but
// nothing observes the result and the buffer is released for garbage
// collection only once that happens. Cancel on an already-resolved or
// already-cancelled Handle is a no-op.
func (h *Handle) Cancel() {
	if h.err != nil || h.resolved || h.cancelled {
		return
	}
	h.reg.Dropped(h.id)
	h.cancelled = true
}

// ID returns the identifier assigned to this operation, primarily useful
// for logging and diagnostics.
func (h *Handle) ID() uint64 { return h.id }
