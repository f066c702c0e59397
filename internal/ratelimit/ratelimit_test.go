package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	info := FromRetryAfter("30", now)
	require.NotNil(t, info)
	assert.Equal(t, now.Add(30*time.Second), info.ResetAt)
	assert.Equal(t, "header", info.Source)

	date := now.Add(2 * time.Minute).Format(http.TimeFormat)
	info = FromRetryAfter(date, now)
	require.NotNil(t, info)
	assert.True(t, info.ResetAt.Equal(now.Add(2*time.Minute)))

	assert.Nil(t, FromRetryAfter("", now))
	assert.Nil(t, FromRetryAfter("soon", now))
	assert.Nil(t, FromRetryAfter("-5", now))
}

func TestParseFromOutput(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantNil   bool
		wantReset bool
	}{
		{"empty", "", true, false},
		{"unrelated", "compilation finished", true, false},
		{"429 with delay", "HTTP 429 Too Many Requests, retry after 20s", false, true},
		{"rate limit no delay", "Rate limit exceeded", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseFromOutput(tt.output)
			if tt.wantNil {
				assert.Nil(t, info)
				return
			}
			require.NotNil(t, info)
			assert.Equal(t, "output", info.Source)
			assert.Equal(t, tt.wantReset, !info.ResetAt.IsZero())
		})
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func TestWaiterShouldWait(t *testing.T) {
	w := NewWaiter(time.Minute, 0, nil)

	assert.False(t, w.ShouldWait(nil))
	assert.True(t, w.ShouldWait(&Info{ResetAt: time.Now().Add(10 * time.Second)}))
	assert.False(t, w.ShouldWait(&Info{ResetAt: time.Now().Add(time.Hour)}))

	disabled := NewWaiter(0, 0, nil)
	assert.False(t, disabled.ShouldWait(&Info{ResetAt: time.Now().Add(time.Second)}))
}

func TestWaiterWaitForReset(t *testing.T) {
	logger := &recordingLogger{}
	w := NewWaiter(time.Minute, 10*time.Millisecond, logger)

	start := time.Now()
	err := w.WaitForReset(context.Background(), &Info{ResetAt: time.Now().Add(50 * time.Millisecond)})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.NotEmpty(t, logger.msgs)
}

func TestWaiterWaitForResetCancelled(t *testing.T) {
	w := NewWaiter(time.Hour, 0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.WaitForReset(ctx, &Info{ResetAt: time.Now().Add(time.Minute)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
