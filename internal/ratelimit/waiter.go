package ratelimit

import (
	"context"
	"time"
)

// Logger receives countdown notifications while waiting.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// Waiter decides whether a rate limit is short enough to wait out and performs the wait.
type Waiter struct {
	maxWait      time.Duration // Longer resets are surfaced as failures
	tick         time.Duration // Countdown log interval
	safetyBuffer time.Duration // Extra wait after the reset time
	logger       Logger        // Can be nil
}

// NewWaiter creates a waiter. A nil logger disables countdown messages.
func NewWaiter(maxWait, safetyBuffer time.Duration, logger Logger) *Waiter {
	return &Waiter{
		maxWait:      maxWait,
		tick:         10 * time.Second,
		safetyBuffer: safetyBuffer,
		logger:       logger,
	}
}

// ShouldWait returns true if info is non-nil and resets within maxWait.
func (w *Waiter) ShouldWait(info *Info) bool {
	if info == nil || w.maxWait <= 0 {
		return false
	}
	return info.TimeUntilReset() <= w.maxWait
}

// TimeUntilResume returns the total wait including the safety buffer.
func (w *Waiter) TimeUntilResume(info *Info) time.Duration {
	if info == nil {
		return 0
	}
	return info.TimeUntilReset() + w.safetyBuffer
}

// WaitForReset blocks until the reset time plus safety buffer. It returns the
// context error if ctx is cancelled first.
func (w *Waiter) WaitForReset(ctx context.Context, info *Info) error {
	if info == nil {
		return nil
	}
	total := w.TimeUntilResume(info)
	if total <= 0 {
		return ctx.Err()
	}
	end := time.Now().Add(total)

	if w.logger != nil {
		w.logger.Warnf("rate limited, resuming in %s", total.Round(time.Second))
	}

	timer := time.NewTimer(total)
	defer timer.Stop()
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case now := <-ticker.C:
			if w.logger != nil {
				w.logger.Warnf("rate limited, %s remaining", end.Sub(now).Round(time.Second))
			}
		}
	}
}
