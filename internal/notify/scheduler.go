package notify

import (
	"context"
	"sync"
	"time"

	"onboard/internal/api"
	"onboard/internal/output"
)

// Source lists the employees to check for celebrations.
type Source func(ctx context.Context) ([]api.Employee, error)

// Deliver receives a non-empty digest.
type Deliver func(digest string)

// DefaultRetryDelay is how long Run waits before retrying a failed fetch.
const DefaultRetryDelay = time.Minute

// Scheduler fires the celebration notice at most once per calendar day, at
// or after a fixed hour.
type Scheduler struct {
	hour    int
	source  Source
	deliver Deliver
	now     func() time.Time
	retry   time.Duration

	mu        sync.Mutex
	lastFired string
}

// NewScheduler creates a Scheduler firing at hour (0-23, clamped).
func NewScheduler(hour int, source Source, deliver Deliver) *Scheduler {
	hour = max(0, min(hour, 23))
	return &Scheduler{hour: hour, source: source, deliver: deliver, now: time.Now, retry: DefaultRetryDelay}
}

// SetClock replaces the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// SetRetryDelay sets how long Run waits before retrying a failed fetch.
func (s *Scheduler) SetRetryDelay(d time.Duration) {
	if d > 0 {
		s.retry = d
	}
}

// Hour returns the configured fire hour.
func (s *Scheduler) Hour() int { return s.hour }

// Tick checks whether the notice is due and, if so, fetches employees and
// delivers today's digest. It reports whether the day was consumed. A day
// with no celebrations still counts as fired; a fetch error does not.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	now := s.now()
	day := now.Format(DateLayout)

	s.mu.Lock()
	due := now.Hour() >= s.hour && s.lastFired != day
	s.mu.Unlock()
	if !due {
		return false, nil
	}

	employees, err := s.source(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.lastFired == day {
		s.mu.Unlock()
		return false, nil
	}
	s.lastFired = day
	s.mu.Unlock()

	if digest := Digest(Celebrations(now, employees)); digest != "" {
		s.deliver(digest)
	}
	output.Debugf("notify: fired for %s", day)
	return true, nil
}

// Run ticks at every daily fire time until ctx is cancelled. A failed tick
// is retried after the retry delay so the day's notice is not lost.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		_, err := s.Tick(ctx)
		if err != nil {
			output.Debugf("notify: tick failed: %v", err)
		}

		timer := time.NewTimer(s.wait(s.now(), err != nil))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// wait returns the delay before the next tick.
func (s *Scheduler) wait(now time.Time, failed bool) time.Duration {
	next := NextFire(now, s.hour)
	if !next.After(now) {
		next = NextFire(now.Add(time.Second), s.hour)
	}
	d := next.Sub(now)
	if failed && s.retry < d {
		return s.retry
	}
	return d
}
