package oracle

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/harrison/rxharness/internal/ratelimit"
)

// CommandTransport invokes an external CLI once per request:
//
//	<path> [args...] --system-prompt <system> -p <user>
//
// When the CLI prints a JSON object with a "result" field, that field is the
// response text. Otherwise stdout is used as is.
type CommandTransport struct {
	Path    string
	Args    []string      // Extra leading arguments, e.g. --output-format json
	Timeout time.Duration // Per invocation; 0 means no timeout

	// Waiter waits out a rate limit reported in the CLI output once.
	Waiter *ratelimit.Waiter
}

// Complete runs the CLI and retries once after a rate limit that Waiter accepts.
// Timeout bounds each invocation on its own; the rate-limit wait is bounded
// only by ctx.
func (t *CommandTransport) Complete(ctx context.Context, req Request) (Response, error) {
	resp, output, err := t.invoke(ctx, req)
	if err != nil {
		if info := ratelimit.ParseFromOutput(output); info != nil && t.Waiter != nil && t.Waiter.ShouldWait(info) {
			if waitErr := t.Waiter.WaitForReset(ctx, info); waitErr != nil {
				return Response{}, waitErr
			}
			resp, _, err = t.invoke(ctx, req)
		}
	}
	return resp, err
}

func (t *CommandTransport) invoke(ctx context.Context, req Request) (Response, string, error) {
	if req.User == "" {
		return Response{}, "", fmt.Errorf("prompt is required")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	args := append([]string{}, t.Args...)
	args = append(args, "--system-prompt", req.System, "-p", req.User)

	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		combined := strings.TrimSpace(stdout.String() + "\n" + stderr.String())
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return Response{}, combined, fmt.Errorf("%s invocation failed: %w (output: %s)", t.Path, err, combined)
	}

	raw := stdout.String()
	return Response{Text: unwrapResult(raw), Usage: gjson.Get(raw, "usage").Raw}, raw, nil
}

// unwrapResult extracts the "result" field of a JSON envelope.
func unwrapResult(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !gjson.Valid(trimmed) {
		return raw
	}
	if result := gjson.Get(trimmed, "result"); result.Exists() && result.Type == gjson.String {
		return result.String()
	}
	return raw
}
