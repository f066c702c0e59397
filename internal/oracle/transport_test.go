package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/rxharness/internal/ratelimit"
)

func TestHTTPTransportComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Test-Case: a\nVerdict: CORRECT\nReason: r\n---"}}],"usage":{"total_tokens":7}}`))
	}))
	defer srv.Close()

	tr := &HTTPTransport{Endpoint: srv.URL + "/v1/", Model: "glm-4.5", APIKey: "secret", MaxTokens: 8192, Temperature: 0.2}
	resp, err := tr.Complete(context.Background(), Request{System: "sys", User: "payload"})
	require.NoError(t, err)

	assert.Equal(t, "Test-Case: a\nVerdict: CORRECT\nReason: r\n---", resp.Text)
	assert.Equal(t, `{"total_tokens":7}`, resp.Usage)
	assert.Equal(t, "glm-4.5", got.Model)
	assert.Equal(t, 8192, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "payload"}, got.Messages[1])
}

func TestHTTPTransportErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error message", http.StatusBadRequest, `{"error":{"message":"bad model"}}`, "bad model"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no response choices"},
		{"plain body", http.StatusBadGateway, "upstream down", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tr := &HTTPTransport{Endpoint: srv.URL}
			_, err := tr.Complete(context.Background(), Request{User: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPTransportRateLimitRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	}))
	defer srv.Close()

	tr := &HTTPTransport{
		Endpoint: srv.URL + "/chat/completions",
		Waiter:   ratelimit.NewWaiter(time.Minute, 10*time.Millisecond, nil),
	}
	resp, err := tr.Complete(context.Background(), Request{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPTransportRateLimitTooLong(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := &HTTPTransport{Endpoint: srv.URL, Waiter: ratelimit.NewWaiter(time.Minute, 0, nil)}
	_, err := tr.Complete(context.Background(), Request{User: "x"})
	require.Error(t, err)

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judge.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestCommandTransportUnwrapsResult(t *testing.T) {
	script := writeScript(t, `
while [ "$#" -gt 0 ]; do
  case "$1" in
    --system-prompt) sys="$2"; shift 2 ;;
    -p) prompt="$2"; shift 2 ;;
    *) shift ;;
  esac
done
printf '{"type":"result","result":"sys=%s prompt=%s"}\n' "$sys" "$prompt"
`)
	tr := &CommandTransport{Path: script, Args: []string{"--output-format", "json"}}
	resp, err := tr.Complete(context.Background(), Request{System: "S", User: "U"})
	require.NoError(t, err)
	assert.Equal(t, "sys=S prompt=U", resp.Text)
}

func TestCommandTransportPlainOutput(t *testing.T) {
	script := writeScript(t, "echo 'Test-Case: a'\n")
	tr := &CommandTransport{Path: script}
	resp, err := tr.Complete(context.Background(), Request{User: "U"})
	require.NoError(t, err)
	assert.Equal(t, "Test-Case: a\n", resp.Text)
}

func TestCommandTransportFailure(t *testing.T) {
	script := writeScript(t, "echo 'fatal: no credentials' >&2\nexit 3\n")
	tr := &CommandTransport{Path: script}
	_, err := tr.Complete(context.Background(), Request{User: "U"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestCommandTransportTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5\n")
	tr := &CommandTransport{Path: script, Timeout: 50 * time.Millisecond}
	_, err := tr.Complete(context.Background(), Request{User: "U"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommandTransportRetryGetsFreshTimeout(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "called")
	script := writeScript(t, `
if [ ! -e "`+marker+`" ]; then
  touch "`+marker+`"
  echo 'rate limit exceeded' >&2
  exit 1
fi
echo 'Test-Case: retried'
`)
	tr := &CommandTransport{
		Path:    script,
		Timeout: 300 * time.Millisecond,
		Waiter:  ratelimit.NewWaiter(time.Minute, 400*time.Millisecond, nil),
	}

	start := time.Now()
	resp, err := tr.Complete(context.Background(), Request{User: "U"})
	require.NoError(t, err)
	assert.Equal(t, "Test-Case: retried\n", resp.Text)
	assert.Greater(t, time.Since(start), tr.Timeout)
}

func TestCommandTransportRequiresPrompt(t *testing.T) {
	tr := &CommandTransport{Path: "true"}
	_, err := tr.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "prompt is required"))
}
