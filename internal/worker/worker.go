//go:build linux

// Package worker implements the batch submit/reap loop (C5): the single
// background goroutine that drains the submission queue, calls io_submit
// in bounded batches, blocks in io_getevents, and dispatches completions
// to the completion registry.
package worker

import (
	"sync"
	"syscall"

	"github.com/maximmoroz/goaio/internal/kaio"
	"github.com/maximmoroz/goaio/internal/logging"
	"github.com/maximmoroz/goaio/internal/registry"
	"github.com/maximmoroz/goaio/internal/submitqueue"
	"github.com/maximmoroz/goaio/internal/uapi"
)

// Observer receives counters for each batch cycle. Implementations must
// not block or re-enter the worker.
type Observer interface {
	ObserveSubmit(accepted int)
	ObserveReap(completed int)
	ObserveFatal(err error)
}

// NoOpObserver discards everything.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSubmit(int)  {}
func (NoOpObserver) ObserveReap(int)    {}
func (NoOpObserver) ObserveFatal(error) {}

// Config configures a Worker. Ctx, Queue and Registry are required.
type Config struct {
	Ctx         *kaio.Context
	Queue       *submitqueue.Queue
	Registry    *registry.Registry
	MaxNBatched int
	MaxNWait    int
	Timeout     *syscall.Timespec // nil blocks io_getevents indefinitely
	Logger      *logging.Logger
	Observer    Observer
}

// Worker runs the batch loop on its own goroutine, started by Start and
// joined by Stop.
type Worker struct {
	cfg      Config
	logger   *logging.Logger
	observer Observer

	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	// fields below are only ever touched from the worker goroutine
	leftover []*uapi.IOCb
	ongoing  int
	events   []uapi.IOEvent

	mu       sync.Mutex
	fatalErr error
}

// New builds a Worker; call Start to begin running it.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	return &Worker{
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		events:   make([]uapi.IOEvent, cfg.MaxNWait),
	}
}

// Start launches the batch loop in a new goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Stop signals shutdown and blocks until the worker has drained all
// in-flight operations and exited. Calling Stop more than once is safe.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.shutdown) })
	<-w.done
}

// Err returns the error that made the worker exit abnormally, or nil if
// the worker is still running or exited cleanly via Stop.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fatalErr
}

func (w *Worker) run() {
	shuttingDown := false
	for {
		if w.ongoing == 0 && len(w.leftover) == 0 {
			if shuttingDown {
				if w.cfg.Queue.Empty() {
					close(w.done)
					return
				}
			} else {
				select {
				case <-w.shutdown:
					shuttingDown = true
					continue
				case <-w.cfg.Queue.Notify():
					// fall through to submitStep: work just arrived.
				}
			}
		}

		w.submitStep()
		if w.fatal() {
			close(w.done)
			return
		}

		if w.ongoing == 0 {
			continue
		}

		w.reapStep()
		if w.fatal() {
			close(w.done)
			return
		}
	}
}

func (w *Worker) fatal() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fatalErr != nil
}

// submitStep repeatedly builds a batch of up to MaxNBatched control blocks
// (leftover first, then freshly drained items) and calls io_submit, until
// a call makes no progress. An errno other than EAGAIN means the kernel
// rejected batch[0] outright and will never report a completion for it,
// so that entry is resolved here with the errno instead of being retried.
func (w *Worker) submitStep() {
	for {
		batch, rest := w.buildBatch()
		if len(batch) == 0 {
			return
		}
		n, err := kaio.Submit(w.cfg.Ctx.ID(), batch)
		if n < 0 {
			n = 0
		}
		if err != nil {
			w.logger.Debugf("io_submit returned %v for batch of %d, treating as 0 accepted", err, len(batch))
		}
		w.ongoing += n
		consumed := n
		if errno, ok := err.(syscall.Errno); ok && errno != syscall.EAGAIN {
			w.cfg.Registry.Finish(batch[0].Data, -int64(errno))
			consumed = 1
		}
		newLeftover := make([]*uapi.IOCb, 0, len(batch[consumed:])+len(rest))
		newLeftover = append(newLeftover, batch[consumed:]...)
		newLeftover = append(newLeftover, rest...)
		w.leftover = newLeftover
		w.observer.ObserveSubmit(n)
		if consumed == 0 {
			return
		}
	}
}

// buildBatch returns the next batch to submit, capped at MaxNBatched, and
// rest: any already-buffered leftover items beyond the cap that were not
// included in batch and must be carried over untouched, not dropped.
func (w *Worker) buildBatch() (batch, rest []*uapi.IOCb) {
	if len(w.leftover) >= w.cfg.MaxNBatched {
		return w.leftover[:w.cfg.MaxNBatched], w.leftover[w.cfg.MaxNBatched:]
	}
	quota := w.cfg.MaxNBatched - len(w.leftover)
	drained, _ := w.cfg.Queue.DrainUpTo(quota)
	if len(drained) == 0 {
		return w.leftover, nil
	}
	batch = make([]*uapi.IOCb, 0, len(w.leftover)+len(drained))
	batch = append(batch, w.leftover...)
	batch = append(batch, drained...)
	return batch, nil
}

// reapStep blocks in io_getevents for at least one completion (up to
// MaxNWait) and dispatches each to the registry.
func (w *Worker) reapStep() {
	n, err := kaio.GetEvents(w.cfg.Ctx.ID(), 1, w.cfg.MaxNWait, w.events, w.cfg.Timeout)
	if err != nil {
		w.logger.Errorf("io_getevents fatal error: %v", err)
		w.observer.ObserveFatal(err)
		w.mu.Lock()
		w.fatalErr = err
		w.mu.Unlock()
		w.cfg.Registry.FailAll(err)
		return
	}
	if n == 0 {
		return
	}
	w.ongoing -= n
	w.observer.ObserveReap(n)
	for i := 0; i < n; i++ {
		ev := w.events[i]
		w.cfg.Registry.Finish(ev.Data, ev.Res)
	}
}
