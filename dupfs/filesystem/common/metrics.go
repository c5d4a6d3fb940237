package common

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ScanMetrics tracks scan progress. Counters are atomic so units update them
// without coordination; unit durations are kept behind a mutex.
type ScanMetrics struct {
	UnitsStarted   atomic.Int64
	UnitsCompleted atomic.Int64
	UnitsFailed    atomic.Int64
	FilesHashed    atomic.Int64
	BytesHashed    atomic.Int64
	FilesSkipped   atomic.Int64
	FilesVerified  atomic.Int64

	active atomic.Int64
	peak   atomic.Int64

	mu        sync.Mutex
	durations []float64 // milliseconds
	startTime time.Time
}

// NewScanMetrics creates metrics with the clock started.
func NewScanMetrics() *ScanMetrics {
	return &ScanMetrics{startTime: time.Now()}
}

// UnitStarted marks a unit as running and updates the peak gauge.
func (m *ScanMetrics) UnitStarted() {
	m.UnitsStarted.Add(1)
	now := m.active.Add(1)
	for {
		peak := m.peak.Load()
		if now <= peak || m.peak.CompareAndSwap(peak, now) {
			return
		}
	}
}

// UnitFinished records the unit's outcome and duration.
func (m *ScanMetrics) UnitFinished(start time.Time, success bool) {
	m.active.Add(-1)
	if success {
		m.UnitsCompleted.Add(1)
	} else {
		m.UnitsFailed.Add(1)
	}

	m.mu.Lock()
	m.durations = append(m.durations, float64(time.Since(start).Microseconds())/1000)
	m.mu.Unlock()
}

// FileHashed counts one hashed file of the given size.
func (m *ScanMetrics) FileHashed(size int64) {
	m.FilesHashed.Add(1)
	m.BytesHashed.Add(size)
}

// Active returns the number of units currently running.
func (m *ScanMetrics) Active() int64 { return m.active.Load() }

// Peak returns the highest number of units observed running at once.
func (m *ScanMetrics) Peak() int64 { return m.peak.Load() }

// MetricsSummary is a point-in-time view of ScanMetrics.
type MetricsSummary struct {
	UnitsStarted     int64
	UnitsCompleted   int64
	UnitsFailed      int64
	FilesHashed      int64
	BytesHashed      int64
	FilesSkipped     int64
	FilesVerified    int64
	PeakConcurrency  int64
	MeanUnitMillis   float64
	StdDevUnitMillis float64
	Elapsed          time.Duration
}

// Summary snapshots the counters and computes unit duration statistics.
func (m *ScanMetrics) Summary() MetricsSummary {
	m.mu.Lock()
	durations := append([]float64(nil), m.durations...)
	m.mu.Unlock()

	summary := MetricsSummary{
		UnitsStarted:    m.UnitsStarted.Load(),
		UnitsCompleted:  m.UnitsCompleted.Load(),
		UnitsFailed:     m.UnitsFailed.Load(),
		FilesHashed:     m.FilesHashed.Load(),
		BytesHashed:     m.BytesHashed.Load(),
		FilesSkipped:    m.FilesSkipped.Load(),
		FilesVerified:   m.FilesVerified.Load(),
		PeakConcurrency: m.Peak(),
		Elapsed:         time.Since(m.startTime),
	}
	if len(durations) > 0 {
		summary.MeanUnitMillis = stat.Mean(durations, nil)
	}
	if len(durations) > 1 {
		summary.StdDevUnitMillis = stat.StdDev(durations, nil)
	}
	return summary
}

// FormatDuration formats a duration for human-readable display
func FormatDuration(duration time.Duration) string {
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(duration.Nanoseconds())/1000)
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1000000)
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	case duration < time.Hour:
		return fmt.Sprintf("%.2fm", duration.Minutes())
	default:
		return fmt.Sprintf("%.2fh", duration.Hours())
	}
}
