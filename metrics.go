//go:build linux

package aio

import (
	"sync/atomic"
	"time"
)

// latencyBuckets are the upper bounds (nanoseconds) of the latency
// histogram, log-spaced from 1us to ~10s.
var latencyBuckets = [...]uint64{
	1_000, 10_000, 100_000, 1_000_000,
	10_000_000, 100_000_000, 1_000_000_000, 10_000_000_000,
}

const numLatencyBuckets = len(latencyBuckets)

// Observer receives per-operation notifications as handles resolve. A
// nil Observer (the default) is replaced with NoOpObserver.
type Observer interface {
	ObserveRead(bytes int, latency time.Duration, err error)
	ObserveWrite(bytes int, latency time.Duration, err error)
}

// NoOpObserver discards all notifications.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(int, time.Duration, error)  {}
func (NoOpObserver) ObserveWrite(int, time.Duration, error) {}

// Metrics accumulates counters for a Manager's lifetime. Safe for
// concurrent use; every field is updated with atomics so recording a
// completion never takes the registry or submission-queue locks.
type Metrics struct {
	ReadOps, WriteOps       atomic.Uint64
	ReadBytes, WriteBytes   atomic.Uint64
	ReadErrors, WriteErrors atomic.Uint64

	SubmitBatches atomic.Uint64
	SubmittedOps  atomic.Uint64
	ReapBatches   atomic.Uint64
	FatalErrors   atomic.Uint64

	totalLatencyNs atomic.Int64
	opCount        atomic.Int64
	buckets        [numLatencyBuckets]atomic.Uint64

	startTime atomic.Int64
	stopTime  atomic.Int64
}

// NewMetrics creates a Metrics with StartTime set to now.
func NewMetrics(now time.Time) *Metrics {
	m := &Metrics{}
	m.startTime.Store(now.UnixNano())
	return m
}

// RecordRead records a completed read operation.
func (m *Metrics) RecordRead(bytes int, latency time.Duration, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(uint64(bytes))
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latency)
}

// RecordWrite records a completed write operation.
func (m *Metrics) RecordWrite(bytes int, latency time.Duration, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(uint64(bytes))
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latency)
}

func (m *Metrics) recordLatency(latency time.Duration) {
	ns := latency.Nanoseconds()
	m.totalLatencyNs.Add(ns)
	m.opCount.Add(1)
	for i, upper := range latencyBuckets {
		if uint64(ns) <= upper {
			m.buckets[i].Add(1)
			return
		}
	}
	m.buckets[numLatencyBuckets-1].Add(1)
}

// Stop records StopTime as now; safe to call multiple times.
func (m *Metrics) Stop(now time.Time) {
	m.stopTime.Store(now.UnixNano())
}

// Snapshot is a point-in-time, allocation-light copy of Metrics suitable
// for logging or exposing over an external metrics endpoint.
type Snapshot struct {
	ReadOps, WriteOps       uint64
	ReadBytes, WriteBytes   uint64
	ReadErrors, WriteErrors uint64
	SubmitBatches           uint64
	SubmittedOps            uint64
	ReapBatches             uint64
	FatalErrors             uint64
	AvgLatencyNs            uint64
	P50LatencyNs            uint64
	P99LatencyNs            uint64
	UptimeNs                uint64
	IOPS                    float64
	ErrorRate               float64
}

// Snapshot computes derived statistics from the current counters.
func (m *Metrics) Snapshot(now time.Time) Snapshot {
	readOps := m.ReadOps.Load()
	writeOps := m.WriteOps.Load()
	totalOps := readOps + writeOps
	readErrors := m.ReadErrors.Load()
	writeErrors := m.WriteErrors.Load()

	var avgLatency uint64
	if n := m.opCount.Load(); n > 0 {
		avgLatency = uint64(m.totalLatencyNs.Load()) / uint64(n)
	}

	start := m.startTime.Load()
	stop := m.stopTime.Load()
	end := now.UnixNano()
	if stop != 0 {
		end = stop
	}
	uptime := uint64(0)
	if end > start {
		uptime = uint64(end - start)
	}

	var iops, errRate float64
	if uptime > 0 {
		iops = float64(totalOps) / (float64(uptime) / 1e9)
	}
	if totalOps > 0 {
		errRate = float64(readErrors+writeErrors) / float64(totalOps)
	}

	return Snapshot{
		ReadOps:       readOps,
		WriteOps:      writeOps,
		ReadBytes:     m.ReadBytes.Load(),
		WriteBytes:    m.WriteBytes.Load(),
		ReadErrors:    readErrors,
		WriteErrors:   writeErrors,
		SubmitBatches: m.SubmitBatches.Load(),
		SubmittedOps:  m.SubmittedOps.Load(),
		ReapBatches:   m.ReapBatches.Load(),
		FatalErrors:   m.FatalErrors.Load(),
		AvgLatencyNs:  avgLatency,
		P50LatencyNs:  m.percentile(0.50),
		P99LatencyNs:  m.percentile(0.99),
		UptimeNs:      uptime,
		IOPS:          iops,
		ErrorRate:     errRate,
	}
}

// percentile estimates a latency percentile as the upper bound of the first
// histogram bucket whose cumulative count reaches the percentile; it is an
// approximation, not an exact order statistic, and does not interpolate
// within a bucket.
func (m *Metrics) percentile(p float64) uint64 {
	total := uint64(0)
	counts := make([]uint64, numLatencyBuckets)
	for i := range m.buckets {
		counts[i] = m.buckets[i].Load()
		total += counts[i]
	}
	if total == 0 {
		return 0
	}
	target := uint64(p * float64(total))
	if target == 0 {
		target = 1
	}
	var cumulative uint64
	for i, c := range counts {
		cumulative += c
		if cumulative >= target {
			return latencyBuckets[i]
		}
	}
	return latencyBuckets[numLatencyBuckets-1]
}

// MetricsObserver adapts *Metrics to the public Observer interface.
type MetricsObserver struct {
	M *Metrics
}

func (o *MetricsObserver) ObserveRead(bytes int, latency time.Duration, err error) {
	o.M.RecordRead(bytes, latency, err == nil)
}

func (o *MetricsObserver) ObserveWrite(bytes int, latency time.Duration, err error) {
	o.M.RecordWrite(bytes, latency, err == nil)
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)

// workerMetricsAdapter adapts *Metrics to internal/worker.Observer (batch
// accounting), kept separate from the public per-operation Observer above
// since callers of this package never see batch-level detail.
type workerMetricsAdapter struct {
	m *Metrics
}

func (a *workerMetricsAdapter) ObserveSubmit(accepted int) {
	a.m.SubmitBatches.Add(1)
	a.m.SubmittedOps.Add(uint64(accepted))
}

func (a *workerMetricsAdapter) ObserveReap(completed int) {
	a.m.ReapBatches.Add(1)
}

func (a *workerMetricsAdapter) ObserveFatal(err error) {
	a.m.FatalErrors.Add(1)
}
