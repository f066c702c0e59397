// Package scheduler fans independent units of work out to a bounded worker
// pool with a minimum delay between submissions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
)

// Config bounds the fan-out.
type Config struct {
	MaxWorkers int           // Units in flight at once; values < 1 mean 1
	Pacing     time.Duration // Minimum delay between successive submissions; 0 disables pacing
}

// Scheduler dispatches units. Build one per run; a Scheduler is safe to reuse
// across calls to Run but calls share its pacing budget.
type Scheduler struct {
	cfg     Config
	limiter *rate.Limiter
}

// New creates a Scheduler from cfg.
func New(cfg Config) *Scheduler {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	limit := rate.Inf
	if cfg.Pacing > 0 {
		limit = rate.Every(cfg.Pacing)
	}
	return &Scheduler{cfg: cfg, limiter: rate.NewLimiter(limit, 1)}
}

// MaxWorkers returns the concurrency bound.
func (s *Scheduler) MaxWorkers() int { return s.cfg.MaxWorkers }

// Outcome is the result of one unit.
type Outcome[R any] struct {
	Value R
	Err   error
}

// PanicError wraps a panic raised inside a unit.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unit panicked: %v", e.Value)
}

// Run executes fn for every unit with at most MaxWorkers in flight. A unit
// takes its pacing token only after it holds a worker slot, so successive
// dispatches are at least Pacing apart however the previous units complete.
// A unit that errors or panics only affects its own Outcome. Run waits for
// every submitted unit and returns outcomes in submission order. Units not yet
// dispatched when ctx is cancelled get ctx.Err().
func Run[U, R any](ctx context.Context, s *Scheduler, units []U, fn func(context.Context, U) (R, error)) []Outcome[R] {
	outcomes := make([]Outcome[R], len(units))
	p := pool.New().WithMaxGoroutines(s.cfg.MaxWorkers)

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(units); j++ {
				outcomes[j].Err = err
			}
			break
		}
		i, unit := i, unit
		p.Go(func() {
			if err := s.limiter.Wait(ctx); err != nil {
				outcomes[i].Err = ctxErr(ctx, err)
				return
			}
			outcomes[i] = runUnit(ctx, unit, fn)
		})
	}

	p.Wait()
	return outcomes
}

func runUnit[U, R any](ctx context.Context, unit U, fn func(context.Context, U) (R, error)) (out Outcome[R]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[R]{Err: &PanicError{Value: r}}
		}
	}()
	v, err := fn(ctx, unit)
	return Outcome[R]{Value: v, Err: err}
}

func ctxErr(ctx context.Context, fallback error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fallback
}
