package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesSubmissionOrder(t *testing.T) {
	s := New(Config{MaxWorkers: 4})
	units := []int{5, 1, 4, 2, 3}

	outcomes := Run(context.Background(), s, units, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	require.Len(t, outcomes, len(units))
	for i, n := range units {
		assert.NoError(t, outcomes[i].Err)
		assert.Equal(t, n*10, outcomes[i].Value)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	s := New(Config{MaxWorkers: 2})
	var inFlight, peak int32

	units := make([]int, 10)
	Run(context.Background(), s, units, func(context.Context, int) (struct{}, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, int32(0), atomic.LoadInt32(&inFlight))
}

func TestRunPacesSubmissions(t *testing.T) {
	s := New(Config{MaxWorkers: 8, Pacing: 20 * time.Millisecond})

	var mu sync.Mutex
	var starts []time.Time
	Run(context.Background(), s, []int{1, 2, 3, 4}, func(context.Context, int) (int, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return 0, nil
	})

	require.Len(t, starts, 4)
	first, last := starts[0], starts[0]
	for _, st := range starts {
		if st.Before(first) {
			first = st
		}
		if st.After(last) {
			last = st
		}
	}
	// three gaps of at least one pacing interval, with slack for timer jitter
	assert.GreaterOrEqual(t, last.Sub(first), 50*time.Millisecond)
}

func TestRunPacesDispatchAfterSimultaneousCompletion(t *testing.T) {
	const pacing = 100 * time.Millisecond
	s := New(Config{MaxWorkers: 2, Pacing: pacing})

	var mu sync.Mutex
	starts := make([]time.Time, 4)
	release := make(chan struct{})
	var firstTwo sync.WaitGroup
	firstTwo.Add(2)

	go func() {
		firstTwo.Wait()
		// Both workers stay busy long enough for idle tokens to pile up.
		time.Sleep(4 * pacing)
		close(release)
	}()

	Run(context.Background(), s, []int{0, 1, 2, 3}, func(_ context.Context, n int) (int, error) {
		mu.Lock()
		starts[n] = time.Now()
		mu.Unlock()
		if n < 2 {
			firstTwo.Done()
			<-release
		}
		return n, nil
	})

	// a little slack for timer granularity
	assert.GreaterOrEqual(t, gap(starts[0], starts[1]), pacing-10*time.Millisecond)
	assert.GreaterOrEqual(t, gap(starts[2], starts[3]), pacing-10*time.Millisecond)
}

func gap(a, b time.Time) time.Duration {
	if d := b.Sub(a); d >= 0 {
		return d
	}
	return a.Sub(b)
}

func TestRunIsolatesFailures(t *testing.T) {
	s := New(Config{MaxWorkers: 3})
	boom := errors.New("transport down")

	outcomes := Run(context.Background(), s, []string{"ok", "err", "panic", "ok2"}, func(_ context.Context, u string) (string, error) {
		switch u {
		case "err":
			return "", boom
		case "panic":
			panic("unexpected")
		}
		return u + "!", nil
	})

	require.Len(t, outcomes, 4)
	assert.Equal(t, "ok!", outcomes[0].Value)
	assert.ErrorIs(t, outcomes[1].Err, boom)

	var pe *PanicError
	require.ErrorAs(t, outcomes[2].Err, &pe)
	assert.Equal(t, "unexpected", pe.Value)

	assert.NoError(t, outcomes[3].Err)
	assert.Equal(t, "ok2!", outcomes[3].Value)
}

func TestRunCancelledBeforeSubmission(t *testing.T) {
	s := New(Config{MaxWorkers: 1, Pacing: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	var ran int32
	outcomes := Run(ctx, s, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		atomic.AddInt32(&ran, 1)
		cancel()
		return 1, nil
	})

	require.Len(t, outcomes, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, context.Canceled)
	assert.ErrorIs(t, outcomes[2].Err, context.Canceled)
}

func TestNewClampsWorkers(t *testing.T) {
	assert.Equal(t, 1, New(Config{}).MaxWorkers())
	assert.Equal(t, 4, New(Config{MaxWorkers: 4}).MaxWorkers())
}
