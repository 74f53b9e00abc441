package observer

import (
	"sync"
	"time"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

// Observer collects metrics over finished runs and flags slow ones
type Observer struct {
	slowThreshold time.Duration

	runs []domain.Run
	mu   sync.RWMutex
}

// Metrics holds aggregated metrics
type Metrics struct {
	TotalRuns      int
	TotalProcessed int
	TotalSkipped   int
	TotalFailed    int
	TotalDeleted   int
	TotalBytes     int64
	AvgDuration    time.Duration
	SlowRuns       int
}

// New creates a new Observer. Runs taking longer than slowThreshold are
// counted as slow; with a fixed interval that usually means the next run
// starts late.
func New(slowThreshold time.Duration) *Observer {
	return &Observer{
		slowThreshold: slowThreshold,
	}
}

// IsSlow returns true if a finished run took longer than the threshold
func (o *Observer) IsSlow(run domain.Run) bool {
	if run.FinishedAt == nil || o.slowThreshold <= 0 {
		return false
	}
	return run.Duration() > o.slowThreshold
}

// RecordRun records a finished run
func (o *Observer) RecordRun(run domain.Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, run)
}

// GetMetrics returns aggregated metrics
func (o *Observer) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var metrics Metrics
	var totalDuration time.Duration

	for _, r := range o.runs {
		metrics.TotalRuns++
		metrics.TotalProcessed += r.Processed
		metrics.TotalSkipped += r.Skipped
		metrics.TotalFailed += r.Failed
		metrics.TotalDeleted += r.Deleted
		metrics.TotalBytes += r.Bytes
		totalDuration += r.Duration()
		if o.IsSlow(r) {
			metrics.SlowRuns++
		}
	}

	if metrics.TotalRuns > 0 {
		metrics.AvgDuration = totalDuration / time.Duration(metrics.TotalRuns)
	}

	return metrics
}

// GetRecentRuns returns the IDs of runs started within the last duration
func (o *Observer) GetRecentRuns(since time.Duration) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	cutoff := time.Now().Add(-since)
	var result []string

	for _, r := range o.runs {
		if r.StartedAt.After(cutoff) {
			result = append(result, r.ID)
		}
	}

	return result
}
