package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for the retrieval pipeline.
type Metrics struct {
	mu sync.Mutex

	buildTotal   atomic.Int64
	buildFailed  atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	evictions    atomic.Int64
	remoteOK     atomic.Int64
	fallbacks    atomic.Int64
	reinforced   atomic.Int64
	droppedEvent atomic.Int64

	// Build duration window (simplified for internal use).
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordBuild records a context build.
func (m *Metrics) RecordBuild() {
	m.buildTotal.Add(1)
}

// RecordBuildFailure records a rejected context build.
func (m *Metrics) RecordBuildFailure() {
	m.buildFailed.Add(1)
}

// RecordDuration records a build duration.
func (m *Metrics) RecordDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		// Remove oldest duration (FIFO)
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
}

// RecordCacheHit records an embedding cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Add(1) }

// RecordCacheMiss records an embedding cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Add(1) }

// RecordEviction records an embedding cache eviction.
func (m *Metrics) RecordEviction() { m.evictions.Add(1) }

// RecordRemoteEmbedding records a successful remote provider call.
func (m *Metrics) RecordRemoteEmbedding() { m.remoteOK.Add(1) }

// RecordFallback records a fallback to the local encoder.
func (m *Metrics) RecordFallback() { m.fallbacks.Add(1) }

// RecordReinforcement records an applied reinforcement event.
func (m *Metrics) RecordReinforcement() { m.reinforced.Add(1) }

// RecordDroppedEvent records a reinforcement event dropped on a full queue.
func (m *Metrics) RecordDroppedEvent() { m.droppedEvent.Add(1) }

// AverageDuration returns the mean of the recorded build durations.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	return total / time.Duration(len(m.durations))
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	count := len(m.durations)
	m.mu.Unlock()
	avg := m.AverageDuration()

	return &MetricsSnapshot{
		BuildTotal:      m.buildTotal.Load(),
		BuildFailed:     m.buildFailed.Load(),
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
		Evictions:       m.evictions.Load(),
		RemoteEmbedding: m.remoteOK.Load(),
		Fallbacks:       m.fallbacks.Load(),
		Reinforced:      m.reinforced.Load(),
		DroppedEvents:   m.droppedEvent.Load(),
		DurationCount:   count,
		AverageDuration: avg,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	BuildTotal      int64
	BuildFailed     int64
	CacheHits       int64
	CacheMisses     int64
	Evictions       int64
	RemoteEmbedding int64
	Fallbacks       int64
	Reinforced      int64
	DroppedEvents   int64
	DurationCount   int
	AverageDuration time.Duration
}

// CacheHitRate returns the embedding cache hit rate as a percentage (0-100).
func (s *MetricsSnapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total) * 100.0
}
