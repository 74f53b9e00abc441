package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttled limits how often an underlying notifier is called. Error
// notifications always pass so failures are never swallowed; everything
// else is dropped while the limiter has no tokens.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter

	dropped int
	mu      sync.Mutex
}

// NewThrottled allows one notification per interval. A zero interval
// disables throttling.
func NewThrottled(next Notifier, interval time.Duration) *Throttled {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send forwards the notification if the rate allows it
func (t *Throttled) Send(n Notification) error {
	if n.Type != NotifyError && !t.limiter.Allow() {
		t.mu.Lock()
		t.dropped++
		t.mu.Unlock()
		return nil
	}
	return t.next.Send(n)
}

// Dropped returns how many notifications were suppressed
func (t *Throttled) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
