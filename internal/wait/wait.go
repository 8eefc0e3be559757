package wait

import (
	"context"
	"time"
)

// DefaultInterval is the pause between two probe attempts.
const DefaultInterval = 3 * time.Second

// Poller repeatedly evaluates a condition until it holds or a deadline passes.
// Now and Sleep are injectable so callers can drive it without real delays.
type Poller struct {
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// New returns a Poller backed by the wall clock.
func New(interval time.Duration) Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Poller{Interval: interval, Now: time.Now, Sleep: Sleep}
}

// Until evaluates cond until it returns true or timeout has elapsed since the
// call began. A condition that never holds returns false no later than
// timeout + Interval after the call (plus the time spent inside cond).
func (p Poller) Until(ctx context.Context, timeout time.Duration, cond func(context.Context) bool) bool {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := now()
	for now().Sub(start) < timeout {
		if cond(ctx) {
			return true
		}
		if err := sleep(ctx, interval); err != nil {
			return false
		}
	}
	return false
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
