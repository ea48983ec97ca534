//go:build linux

package aio

import (
	"sync/atomic"
	"syscall"
	"time"

	"github.com/maximmoroz/goaio/internal/constants"
	"github.com/maximmoroz/goaio/internal/kaio"
	"github.com/maximmoroz/goaio/internal/logging"
	"github.com/maximmoroz/goaio/internal/registry"
	"github.com/maximmoroz/goaio/internal/submitqueue"
	"github.com/maximmoroz/goaio/internal/worker"
)

// Builder configures and constructs a Manager. NewBuilder seeds it with the
// same defaults as the legacy AIO reference implementation this package is
// modeled on (a zero Builder{} has no defaults applied): 128 max events, 128 max concurrently-awaited completions per
// io_getevents call, 128 max control blocks per io_submit call, and a
// blocking (no timeout) reap loop.
type Builder struct {
	maxEvents   uint32
	maxNWait    int
	maxNBatched int
	timeout     *syscall.Timespec
	logger      *logging.Logger
	observer    Observer
	metrics     *Metrics
}

// NewBuilder returns a Builder seeded with the package defaults.
func NewBuilder() *Builder {
	return &Builder{
		maxEvents:   constants.DefaultMaxEvents,
		maxNWait:    constants.DefaultMaxNWait,
		maxNBatched: constants.DefaultMaxNBatched,
	}
}

// MaxEvents sets the io_setup queue depth (the kernel's ceiling on
// simultaneously outstanding operations for this context).
func (b *Builder) MaxEvents(n uint32) *Builder {
	b.maxEvents = n
	return b
}

// MaxNWait sets the maximum number of completions requested per
// io_getevents call.
func (b *Builder) MaxNWait(n int) *Builder {
	b.maxNWait = n
	return b
}

// MaxNBatched sets the maximum number of control blocks submitted per
// io_submit call.
func (b *Builder) MaxNBatched(n int) *Builder {
	b.maxNBatched = n
	return b
}

// Timeout bounds each io_getevents call; zero or negative means block
// indefinitely (the default).
func (b *Builder) Timeout(d time.Duration) *Builder {
	if d <= 0 {
		b.timeout = nil
		return b
	}
	ts := syscall.NsecToTimespec(d.Nanoseconds())
	b.timeout = &ts
	return b
}

// Logger overrides the logger used by the manager and its worker.
func (b *Builder) Logger(l *logging.Logger) *Builder {
	b.logger = l
	return b
}

// Observe registers a callback invoked as each read/write resolves.
func (b *Builder) Observe(o Observer) *Builder {
	b.observer = o
	return b
}

// WithMetrics attaches a *Metrics that is updated as operations complete
// and batches are submitted/reaped, and wraps it as the Observer unless one
// was already set via Observe.
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.metrics = m
	if b.observer == nil {
		b.observer = &MetricsObserver{M: m}
	}
	return b
}

// Build creates the kernel AIO context and starts the batch worker. The
// returned error, when non-nil, is always an *Error with one of the
// Code{MaxEventsTooLarge,LowKernelRes,NotSupported,SetupOther} codes.
func (b *Builder) Build() (*Manager, error) {
	ctx, err := kaio.NewContext(b.maxEvents)
	if err != nil {
		return nil, newSetupError(err)
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := b.observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NewMetrics(time.Now())
	}

	reg := registry.New()
	queue := submitqueue.New()
	w := worker.New(worker.Config{
		Ctx:         ctx,
		Queue:       queue,
		Registry:    reg,
		MaxNBatched: b.maxNBatched,
		MaxNWait:    b.maxNWait,
		Timeout:     b.timeout,
		Logger:      logger,
		Observer:    &workerMetricsAdapter{m: metrics},
	})
	w.Start()

	m := &Manager{
		ctx:      ctx,
		reg:      reg,
		queue:    queue,
		worker:   w,
		logger:   logger,
		observer: observer,
		metrics:  metrics,
	}
	return m, nil
}

// Manager is the facade (C7) over the kernel AIO context, the completion
// registry, the submission queue and the batch worker. A Manager owns
// exactly one kernel io_context and one background worker goroutine; create
// additional Managers to parallelize across contexts.
type Manager struct {
	ctx      *kaio.Context
	reg      *registry.Registry
	queue    *submitqueue.Queue
	worker   *worker.Worker
	logger   *logging.Logger
	observer Observer
	metrics  *Metrics

	nextID atomic.Uint64
	closed atomic.Bool
}

// Metrics returns the manager's metrics accumulator.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Read submits a pread(fd, offset, length) and returns a Handle that
// resolves to the bytes read. priority is an optional request priority
// (RWF/IOPRIO-style hint); at most one value may be given.
func (m *Manager) Read(fd int, offset uint64, length int, priority ...uint16) *Handle {
	return m.submit("read", func(id uint64) *registry.Record {
		return registry.NewReadRecord(id, fd, offset, length, pick(priority))
	})
}

// Write submits a pwrite(fd, offset, buf) and returns a Handle that
// resolves once the write completes. The Manager takes ownership of buf
// until the kernel operation completes, even if the Handle is cancelled
// before then.
func (m *Manager) Write(fd int, offset uint64, buf []byte, priority ...uint16) *Handle {
	return m.submit("write", func(id uint64) *registry.Record {
		return registry.NewWriteRecord(id, fd, offset, buf, pick(priority))
	})
}

func pick(priority []uint16) uint16 {
	if len(priority) > 0 {
		return priority[0]
	}
	return 0
}

func (m *Manager) submit(op string, newRecord func(id uint64) *registry.Record) *Handle {
	if m.closed.Load() {
		return &Handle{op: op, reg: m.reg, err: ErrManagerClosed}
	}
	id := m.nextID.Add(1)
	rec := newRecord(id)
	m.reg.Register(id, rec)
	m.queue.Push(rec.Ctrl)
	return &Handle{
		id:       id,
		op:       op,
		reg:      m.reg,
		observer: m.observer,
		start:    time.Now(),
	}
}

// Close stops accepting new work, drains all outstanding operations (the
// worker finishes every in-flight and leftover control block before
// exiting), and destroys the kernel context. Close is idempotent; the
// second and later calls return nil immediately.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.queue.Close()
	m.worker.Stop()
	m.metrics.Stop(time.Now())
	if err := m.worker.Err(); err != nil {
		m.logger.Warnf("worker exited with error: %v", err)
	}
	return m.ctx.Destroy()
}
