package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/harrison/rxharness/internal/ratelimit"
)

// HTTPTransport talks to an OpenAI-compatible chat completions endpoint.
// It is safe for concurrent use.
type HTTPTransport struct {
	Endpoint    string // Base URL, e.g. https://api.example.com/v1
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration // Per request; 0 means no timeout

	// Waiter waits out 429 responses once. Nil surfaces them as errors.
	Waiter *ratelimit.Waiter

	Client *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// RateLimitError is returned for a 429 response that was not waited out.
type RateLimitError struct {
	Info *ratelimit.Info
	Body string
}

func (e *RateLimitError) Error() string {
	if e.Info != nil && !e.Info.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited until %s: %s", e.Info.ResetAt.Format(time.RFC3339), e.Body)
	}
	return "rate limited: " + e.Body
}

// Complete sends req and returns the first choice's message content.
func (t *HTTPTransport) Complete(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(chatRequest{
		Model: t.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   t.MaxTokens,
		Temperature: t.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	resp, err := t.post(ctx, body)
	var rl *RateLimitError
	if errors.As(err, &rl) && t.Waiter != nil && t.Waiter.ShouldWait(rl.Info) {
		if waitErr := t.Waiter.WaitForReset(ctx, rl.Info); waitErr != nil {
			return Response{}, waitErr
		}
		resp, err = t.post(ctx, body)
	}
	return resp, err
}

func (t *HTTPTransport) post(ctx context.Context, body []byte) (Response, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url(), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return Response{}, &RateLimitError{
			Info: ratelimit.FromRetryAfter(httpResp.Header.Get("Retry-After"), time.Now()),
			Body: errorMessage(data),
		}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return Response{}, fmt.Errorf("chat completion returned %s: %s", httpResp.Status, errorMessage(data))
	}

	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() {
		return Response{}, fmt.Errorf("no response choices received")
	}
	usage := gjson.GetBytes(data, "usage")
	return Response{Text: content.String(), Usage: usage.Raw}, nil
}

func (t *HTTPTransport) url() string {
	base := strings.TrimRight(t.Endpoint, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512] + "... (truncated)"
	}
	if s == "" {
		return "<empty body>"
	}
	return s
}
