// Package logger provides logging implementations for rxharness runs.
//
// Loggers report leveled messages, per-case progress and the final run
// summary. Implementations are thread-safe and write to the console or to
// a per-run log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/report"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled only when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	scheme      *colorScheme
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		scheme:      newColorScheme(),
	}
}

// isTerminal reports whether w is a TTY and NO_COLOR is not set.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levelValues[normalized]; ok {
		return normalized
	}
	return "info"
}

var levelValues = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	if v, ok := levelValues[level]; ok {
		return v
	}
	return levelInfo
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) { cl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) { cl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("ERROR", message) }

func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.LogDebug(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.LogInfo(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.LogWarn(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.LogError(fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	lvl := level
	if cl.colorOutput {
		lvl = cl.scheme.level(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), lvl, message)
}

// LogCaseResult logs one finished case at INFO level.
// Format: "[HH:MM:SS] [i/N] <id>: <STATUS>" with " (<reason>)" for failures.
func (cl *ConsoleLogger) LogCaseResult(done, total int, res models.CaseResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := caseStatusLabel(res)
	if cl.colorOutput {
		status = cl.scheme.status(res, status)
	}
	line := fmt.Sprintf("[%s] [%d/%d] %s: %s", timestamp(), done, total, res.Case.ID, status)
	if !res.Passed() && res.Reason != "" {
		line += fmt.Sprintf(" (%s)", res.Reason)
	}
	fmt.Fprintln(cl.writer, line)
}

// LogSummary logs the run summary at INFO level:
//
//	[HH:MM:SS] === Run Summary ===
//	[HH:MM:SS] Total: N, Passed: P, Failed: F
//	[HH:MM:SS] Passed [=====     ] P/N (x%)
//	[HH:MM:SS] Duration: 5s
//	[HH:MM:SS] Failed cases:
//	[HH:MM:SS]   - <id>: <reason>
func (cl *ConsoleLogger) LogSummary(s models.RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	bar := NewResultBar(s.Passed, s.Failed, s.Total, 20)
	bar.Prefix = "Passed "
	var scheme *colorScheme
	if cl.colorOutput {
		scheme = cl.scheme
	}

	header := "=== Run Summary ==="
	tally := report.ConsoleSummary(s)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		if s.Failed > 0 {
			tally = cl.scheme.fail.Sprint(tally)
		} else {
			tally = cl.scheme.success.Sprint(tally)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", ts, header)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, tally)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, bar.Render(scheme))
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(s.Duration))
	if len(s.Failures) > 0 {
		fmt.Fprintf(&sb, "[%s] Failed cases:\n", ts)
		for _, f := range s.Failures {
			id := f.Case.ID
			if cl.colorOutput {
				id = cl.scheme.fail.Sprint(id)
			}
			fmt.Fprintf(&sb, "[%s]   - %s: %s\n", ts, id, f.Reason)
		}
	}
	io.WriteString(cl.writer, sb.String())
}

// caseStatusLabel renders the status, adding the baseline classification
// for regression runs.
func caseStatusLabel(res models.CaseResult) string {
	switch res.Baseline {
	case models.BaselineNew:
		if !res.Passed() {
			return string(res.Status) + " (new)"
		}
		return "NEW"
	case models.BaselineRegression:
		return string(res.Status) + " (regression)"
	}
	return string(res.Status)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards every message. Useful for tests and quiet runs.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) Debugf(string, ...interface{}) {}
func (n *NoOpLogger) Infof(string, ...interface{}) {}
func (n *NoOpLogger) Warnf(string, ...interface{}) {}
func (n *NoOpLogger) Errorf(string, ...interface{}) {}
func (n *NoOpLogger) LogCaseResult(int, int, models.CaseResult) {}
func (n *NoOpLogger) LogSummary(models.RunSummary) {}
