package logger

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/rxharness/internal/models"
)

var tsPrefix = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] `)

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.Infof("compiled builtin in %s", "0.2s")

	line := buf.String()
	assert.Regexp(t, tsPrefix, line)
	assert.True(t, strings.HasSuffix(line, "[INFO] compiled builtin in 0.2s\n"), line)
	assert.NotContains(t, line, "\x1b[", "buffers are never colored")
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "trace", want: []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "debug", want: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "info", want: []string{"INFO", "WARN", "ERROR"}},
		{level: "WARN", want: []string{"WARN", "ERROR"}},
		{level: "error", want: []string{"ERROR"}},
		{level: "bogus", want: []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.level)
			cl.LogTrace("m")
			cl.LogDebug("m")
			cl.LogInfo("m")
			cl.LogWarn("m")
			cl.LogError("m")

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if m := regexp.MustCompile(`\[([A-Z]+)\] m$`).FindStringSubmatch(line); m != nil {
					got = append(got, m[1])
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")
	assert.NotPanics(t, func() {
		cl.LogInfo("x")
		cl.LogCaseResult(1, 1, models.CaseResult{})
		cl.LogSummary(models.RunSummary{})
	})
}

func TestConsoleLoggerCaseResult(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogCaseResult(1, 3, models.CaseResult{Case: models.TestCase{ID: "loops/l1"}, Status: models.CasePass})
	cl.LogCaseResult(2, 3, models.CaseResult{Case: models.TestCase{ID: "loops/l2"}, Status: models.CaseTimeout, Reason: "reimu timeout (>10s): <no output>"})
	cl.LogCaseResult(3, 3, models.CaseResult{Case: models.TestCase{ID: "new/n"}, Status: models.CasePass, Baseline: models.BaselineNew})
	cl.LogCaseResult(3, 3, models.CaseResult{Case: models.TestCase{ID: "new/slow"}, Status: models.CaseTimeout, Reason: "compile timeout (>1s): <no output>", Baseline: models.BaselineNew})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[1/3] loops/l1: PASS", tsPrefix.ReplaceAllString(lines[0], ""))
	assert.Equal(t, "[2/3] loops/l2: TIMEOUT (reimu timeout (>10s): <no output>)", tsPrefix.ReplaceAllString(lines[1], ""))
	assert.Equal(t, "[3/3] new/n: NEW", tsPrefix.ReplaceAllString(lines[2], ""))
	assert.Equal(t, "[3/3] new/slow: TIMEOUT (new) (compile timeout (>1s): <no output>)", tsPrefix.ReplaceAllString(lines[3], ""))
}

func TestConsoleLoggerCaseResultFilteredAtWarn(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "warn")
	cl.LogCaseResult(1, 1, models.CaseResult{Case: models.TestCase{ID: "a"}, Status: models.CasePass})
	assert.Empty(t, buf.String())
}

func TestConsoleLoggerSummary(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.LogSummary(models.RunSummary{
		Total:    4,
		Passed:   2,
		Failed:   2,
		Duration: 90 * time.Second,
		Failures: []models.CaseResult{
			{Case: models.TestCase{ID: "a"}, Status: models.CaseFail, Reason: "output mismatch"},
			{Case: models.TestCase{ID: "b"}, Status: models.CaseMissingArtifacts, Reason: "missing .in or .out file"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "=== Run Summary ===")
	assert.Contains(t, out, "Total: 4, Passed: 2, Failed: 2\n")
	assert.Contains(t, out, "Passed [==========xxxxxxxxxx] 2/4 (50%)")
	assert.Contains(t, out, "Duration: 1m30s")
	assert.Contains(t, out, "  - a: output mismatch\n")
	assert.Contains(t, out, "  - b: missing .in or .out file\n")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute + 9*time.Second, "2h15m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in), tt.in.String())
	}
}

func TestResultBar(t *testing.T) {
	tests := []struct {
		name string
		bar  ResultBar
		want string
	}{
		{"nothing run", NewResultBar(0, 0, 4, 8), "[        ] 0/4 (0%)"},
		{"mixed", ResultBar{Passed: 1, Failed: 2, Total: 4, Width: 8, Prefix: "cases "}, "cases [==xxxx  ] 1/4 (25%)"},
		{"all passed", NewResultBar(4, 0, 4, 8), "[========] 4/4 (100%)"},
		{"overflow clamps", NewResultBar(9, 3, 4, 8), "[========] 9/4 (100%)"},
		{"empty run default width", NewResultBar(0, 0, 0, 0), "[          ] 0/0 (0%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bar.Render(nil))
		})
	}
	assert.Equal(t, 25, NewResultBar(1, 0, 4, 8).Percentage())
}

func TestNoOpLogger(t *testing.T) {
	n := NewNoOpLogger()
	assert.NotPanics(t, func() {
		n.Infof("x %d", 1)
		n.LogCaseResult(1, 1, models.CaseResult{})
		n.LogSummary(models.RunSummary{})
	})
}
