// Package ratelimit detects rate-limit responses from the verdict service and
// waits them out when the reset is close enough.
package ratelimit

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Info describes a detected rate limit.
type Info struct {
	DetectedAt time.Time
	ResetAt    time.Time // When the limit is expected to lift
	RawMessage string
	Source     string // "header" or "output"
}

// TimeUntilReset returns the duration until the limit resets, 0 if unknown or past.
func (i *Info) TimeUntilReset() time.Duration {
	if i.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(i.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// IsExpired reports whether the reset time has passed.
func (i *Info) IsExpired() bool {
	if i.ResetAt.IsZero() {
		return true
	}
	return time.Now().After(i.ResetAt)
}

var (
	// "retry in 30 seconds" / "retry after 30s"
	retrySecondsPattern = regexp.MustCompile(`(?i)retry (?:in|after)\s+(\d+)\s*(?:seconds?|s)\b`)

	rateLimitIndicator = regexp.MustCompile(`(?i)(rate.?limit|usage.?limit|\b429\b|too.?many.?requests)`)
)

// FromRetryAfter builds an Info from an HTTP Retry-After header value. Both the
// delay-seconds and HTTP-date forms are accepted. Returns nil when the value is
// empty or unparsable.
func FromRetryAfter(value string, now time.Time) *Info {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	info := &Info{DetectedAt: now, RawMessage: value, Source: "header"}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return nil
		}
		info.ResetAt = now.Add(time.Duration(secs) * time.Second)
		return info
	}
	if at, err := http.ParseTime(value); err == nil {
		info.ResetAt = at
		return info
	}
	return nil
}

// ParseFromOutput detects a rate limit in CLI output. It returns nil when the
// output carries no rate-limit indicator. When no retry delay is stated the
// returned Info has a zero ResetAt.
func ParseFromOutput(output string) *Info {
	if output == "" || !rateLimitIndicator.MatchString(output) {
		return nil
	}
	info := &Info{
		DetectedAt: time.Now(),
		RawMessage: output,
		Source:     "output",
	}
	if m := retrySecondsPattern.FindStringSubmatch(output); len(m) > 1 {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			info.ResetAt = info.DetectedAt.Add(time.Duration(secs) * time.Second)
		}
	}
	return info
}
