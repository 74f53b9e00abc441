package observer

import (
	"testing"
	"time"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

func finishedRun(id string, started time.Time, took time.Duration, sum domain.Summary) domain.Run {
	finished := started.Add(took)
	return domain.Run{ID: id, StartedAt: started, FinishedAt: &finished, Summary: sum}
}

func TestObserver_DetectSlow(t *testing.T) {
	obs := New(5 * time.Minute)

	run := finishedRun("r1", time.Now().Add(-10*time.Minute), 10*time.Minute, domain.Summary{})
	if !obs.IsSlow(run) {
		t.Error("Run taking 10 minutes should be detected as slow")
	}
}

func TestObserver_NotSlow(t *testing.T) {
	obs := New(5 * time.Minute)

	run := finishedRun("r1", time.Now().Add(-2*time.Minute), 2*time.Minute, domain.Summary{})
	if obs.IsSlow(run) {
		t.Error("Run taking 2 minutes should not be slow")
	}

	inFlight := domain.Run{ID: "r2", StartedAt: time.Now().Add(-time.Hour)}
	if obs.IsSlow(inFlight) {
		t.Error("Unfinished run should not be reported as slow")
	}
}

func TestObserver_Metrics(t *testing.T) {
	obs := New(6 * time.Minute)
	now := time.Now()

	obs.RecordRun(finishedRun("r1", now.Add(-time.Hour), 5*time.Minute, domain.Summary{Processed: 3, Failed: 1, Bytes: 100}))
	obs.RecordRun(finishedRun("r2", now.Add(-time.Minute), 10*time.Minute, domain.Summary{Processed: 2, Skipped: 4, Deleted: 2, Bytes: 50}))

	metrics := obs.GetMetrics()

	if metrics.TotalRuns != 2 {
		t.Errorf("TotalRuns = %d, want 2", metrics.TotalRuns)
	}
	if metrics.TotalProcessed != 5 || metrics.TotalSkipped != 4 || metrics.TotalFailed != 1 || metrics.TotalDeleted != 2 {
		t.Errorf("unexpected totals %+v", metrics)
	}
	if metrics.TotalBytes != 150 {
		t.Errorf("TotalBytes = %d, want 150", metrics.TotalBytes)
	}
	if metrics.AvgDuration != 7*time.Minute+30*time.Second {
		t.Errorf("AvgDuration = %v, want 7m30s", metrics.AvgDuration)
	}
	if metrics.SlowRuns != 1 {
		t.Errorf("SlowRuns = %d, want 1", metrics.SlowRuns)
	}

	recent := obs.GetRecentRuns(30 * time.Minute)
	if len(recent) != 1 || recent[0] != "r2" {
		t.Errorf("GetRecentRuns = %v, want [r2]", recent)
	}
}
