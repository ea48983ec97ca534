package registry

import (
	"sync"
	"syscall"
)

// Outcome is the resolved value of a completed operation: either the byte
// count transferred together with the buffer used, or a positive errno.
type Outcome struct {
	N   int
	Buf []byte
	Err error
}

type state int

const (
	stateInit state = iota
	statePending
	stateDone
)

// entry is the tagged-union completion state for one identifier, guarded
// by Registry.mu. Exactly one of rec/outcome is meaningful depending on
// state.
type entry struct {
	state   state
	rec     *Record
	notify  chan struct{} // closed by finish() to wake a parked waiter
	dropped bool
	outcome Outcome
}

// Registry is the completion registry (C3): a mapping from identifier to
// per-operation state, arbitrating between submitter, awaiter, canceller
// and the batch worker. All four operations take the same mutex; callers
// must keep the critical section free of syscalls and heap-heavy work.
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[uint64]*entry)}
}

// Register inserts an Init entry for id. It is a programming error for id
// to already be present.
func (r *Registry) Register(id uint64, rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		panic("registry: duplicate registration for identifier")
	}
	r.entries[id] = &entry{state: stateInit, rec: rec}
}

// Poll is the awaiter's polling hook. notify is the channel the caller
// will select on if the operation is not yet ready; it is stored (replacing
// any previously stored channel) so the next finish() wakes the caller.
// Poll returns (outcome, true) once the operation is Done, in which case
// the entry is removed and the caller owns the Outcome's buffer.
func (r *Registry) Poll(id uint64, notify chan struct{}) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		panic("registry: poll of unregistered identifier")
	}
	switch e.state {
	case stateInit:
		e.state = statePending
		e.notify = notify
		return Outcome{}, false
	case statePending:
		e.notify = notify
		return Outcome{}, false
	case stateDone:
		delete(r.entries, id)
		return e.outcome, true
	default:
		panic("registry: unreachable state")
	}
}

// Dropped marks id as orphaned: the awaiter has gone away but the kernel
// operation, if still live, must keep its buffer and control block pinned
// until completion. A Done entry is discarded immediately since nothing
// is waiting on its result. Dropping an identifier that was never
// registered, or was already removed, is a no-op.
func (r *Registry) Dropped(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	switch e.state {
	case stateInit, statePending:
		e.dropped = true
	case stateDone:
		delete(r.entries, id)
	}
}

// Finish reports a kernel completion: signedResult is the io_event's Res
// field, a non-negative byte count or a negated errno. If the entry was
// dropped, it is discarded silently without waking anyone. Otherwise the
// entry transitions to Done and, if a waiter was parked, its notify
// channel is closed while still holding the registry mutex so the
// waiter's next Poll is guaranteed to observe Done.
func (r *Registry) Finish(id uint64, signedResult int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		panic("registry: finish of unregistered identifier")
	}

	switch e.state {
	case stateInit:
		if e.dropped {
			delete(r.entries, id)
			return
		}
		e.state = stateDone
		e.outcome = outcomeFrom(e.rec, signedResult)
	case statePending:
		if e.dropped {
			delete(r.entries, id)
			return
		}
		e.state = stateDone
		e.outcome = outcomeFrom(e.rec, signedResult)
		if e.notify != nil {
			close(e.notify)
		}
	case stateDone:
		panic("registry: double completion")
	default:
		panic("registry: unreachable state")
	}
}

func outcomeFrom(rec *Record, signedResult int64) Outcome {
	if signedResult >= 0 {
		return Outcome{N: int(signedResult), Buf: rec.Buf}
	}
	return Outcome{Err: syscall.Errno(-signedResult)}
}

// Len reports the number of live entries. Intended for tests and
// diagnostics, not for control flow.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// FailAll resolves every still-live entry to err, waking any parked
// waiters. Used once, by the worker, when io_getevents returns an
// unrecoverable error and the kernel context can no longer be trusted to
// report completions for already-submitted operations.
func (r *Registry) FailAll(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.state == stateDone {
			continue
		}
		e.state = stateDone
		e.outcome = Outcome{Err: err}
		if e.notify != nil {
			close(e.notify)
		}
	}
}
