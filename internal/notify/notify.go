package notify

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string      // Optional run reference
	Run     *domain.Run // Set for run summaries
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// RunSummary builds the notification sent after a run. Runs with failures
// are reported as errors, runs that moved nothing as info.
func RunSummary(run domain.Run) Notification {
	n := Notification{
		Title: fmt.Sprintf("se-arch %s/%s run finished", run.Mode, run.Action),
		Message: fmt.Sprintf("%d processed, %d skipped, %d failed, %d deleted (%s) in %s",
			run.Processed, run.Skipped, run.Failed, run.Deleted,
			humanize.Bytes(uint64(run.Bytes)), run.Duration().Round(1e6)),
		Type:  NotifySuccess,
		RunID: run.ID,
		Run:   &run,
	}
	switch {
	case run.Failed > 0:
		n.Type = NotifyError
		n.Title = fmt.Sprintf("se-arch run finished with %d failure(s)", run.Failed)
	case run.Processed == 0:
		n.Type = NotifyInfo
	}
	return n
}
