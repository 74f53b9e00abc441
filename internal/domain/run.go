package domain

import "time"

// TimeLayout is the timestamp format written to the run log
const TimeLayout = "2006-01-02 15:04:05"

// LogHeader is the header row of the daily run log
var LogHeader = []string{
	"run date / time",
	"source folder",
	"source file name",
	"target folder (archived file name)",
	"status / error message",
}

// LogEntry is one file-level (or group-level) outcome of a run
type LogEntry struct {
	RunID          string
	Timestamp      time.Time
	SourceFolder   string
	SourceFileName string
	Target         string
	Outcome        Outcome
	Status         string
}

// Row returns the entry in log column order
func (e LogEntry) Row() []string {
	return []string{
		e.Timestamp.Format(TimeLayout),
		e.SourceFolder,
		e.SourceFileName,
		e.Target,
		e.Status,
	}
}

// Summary holds the counters of a run
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Deleted   int
	Bytes     int64
}

// Add accumulates another summary into s
func (s *Summary) Add(o Summary) {
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Deleted += o.Deleted
	s.Bytes += o.Bytes
}

// Run represents one invocation of the batch processor
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Mode       Mode
	Action     Action
	Summary
}

// Duration returns how long the run took, or zero while it is in flight
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
