package waycore

import (
	"sync/atomic"
	"time"
)

// latencyBuckets defines the histogram boundaries used for frame
// latency, spanning sub-millisecond compositing up to a
// multi-second worst case (a stalled backend).
var latencyBuckets = []time.Duration{
	10 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	500 * time.Microsecond,
	1 * time.Millisecond,
	10 * time.Millisecond,
	100 * time.Millisecond,
	1 * time.Second,
}

// Metrics accumulates atomic counters for the compositor's hot paths:
// commits, rendered frames, buffer imports, and backend errors, plus a
// latency histogram of the durations passed to RecordFrame.
type Metrics struct {
	commits       atomic.Uint64
	frames        atomic.Uint64
	bufferImports atomic.Uint64
	backendErrors atomic.Uint64
	roleConflicts atomic.Uint64

	latencyBucketCounts [9]atomic.Uint64 // len(latencyBuckets)+1, last is overflow
	latencySum          atomic.Uint64
	latencyCount        atomic.Uint64

	startTime time.Time
}

// NewMetrics constructs an empty Metrics, timestamped at creation so
// Snapshot can report uptime.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordCommit increments the commit counter.
func (m *Metrics) RecordCommit() { m.commits.Add(1) }

// RecordFrame increments the rendered-frame counter and records latency
// in the histogram. Output.Render passes the time spent inside Render.
func (m *Metrics) RecordFrame(latency time.Duration) {
	m.frames.Add(1)
	m.recordLatency(latency)
}

// RecordBufferImport increments the buffer-import counter.
func (m *Metrics) RecordBufferImport() { m.bufferImports.Add(1) }

// RecordBackendError increments the backend-error counter.
func (m *Metrics) RecordBackendError() { m.backendErrors.Add(1) }

// RecordRoleConflict increments the role-conflict counter.
func (m *Metrics) RecordRoleConflict() { m.roleConflicts.Add(1) }

func (m *Metrics) recordLatency(d time.Duration) {
	m.latencySum.Add(uint64(d))
	m.latencyCount.Add(1)

	for i, bound := range latencyBuckets {
		if d <= bound {
			m.latencyBucketCounts[i].Add(1)
			return
		}
	}
	m.latencyBucketCounts[len(latencyBuckets)].Add(1)
}

// MetricsSnapshot is a point-in-time, allocation-free-to-read copy of a
// Metrics instance's counters.
type MetricsSnapshot struct {
	Commits       uint64
	Frames        uint64
	BufferImports uint64
	BackendErrors uint64
	RoleConflicts uint64
	AvgLatencyNs  uint64
	UptimeNs      uint64
}

// Snapshot computes a MetricsSnapshot from the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.latencyCount.Load()
	var avg uint64
	if count > 0 {
		avg = m.latencySum.Load() / count
	}
	return MetricsSnapshot{
		Commits:       m.commits.Load(),
		Frames:        m.frames.Load(),
		BufferImports: m.bufferImports.Load(),
		BackendErrors: m.backendErrors.Load(),
		RoleConflicts: m.roleConflicts.Load(),
		AvgLatencyNs:  avg,
		UptimeNs:      uint64(time.Since(m.startTime)),
	}
}

// Reset zeroes every counter without replacing the Metrics instance, so
// existing references to it continue to see new readings.
func (m *Metrics) Reset() {
	m.commits.Store(0)
	m.frames.Store(0)
	m.bufferImports.Store(0)
	m.backendErrors.Store(0)
	m.roleConflicts.Store(0)
	m.latencySum.Store(0)
	m.latencyCount.Store(0)
	for i := range m.latencyBucketCounts {
		m.latencyBucketCounts[i].Store(0)
	}
	m.startTime = time.Now()
}

// Observer lets a caller plug in its own metrics sink (e.g. a Prometheus
// exporter) without this module depending on any particular backend.
type Observer interface {
	RecordFrame(output string)
	RecordBackendError(output string)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) RecordFrame(string)        {}
func (NoOpObserver) RecordBackendError(string) {}

// MetricsObserver adapts a *Metrics into an Observer, ignoring the
// per-output label (the Metrics counters here are compositor-wide, not
// broken out per output).
type MetricsObserver struct {
	Metrics *Metrics
}

func (o MetricsObserver) RecordFrame(string)        { o.Metrics.RecordFrame(0) }
func (o MetricsObserver) RecordBackendError(string) { o.Metrics.RecordBackendError() }
