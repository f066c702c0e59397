package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/report"
)

// LatestLink is the symlink in the log dir pointing at the newest run log.
const LatestLink = "latest.log"

// FileLogger logs run events to a timestamped per-run file and maintains
// a latest.log symlink pointing to the most recent run.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a FileLogger under logDir.
// It creates the directory if needed, opens run-YYYYMMDD-HHMMSS.log and
// repoints latest.log at it.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, LatestLink)
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.writeRunLog("=== rxharness Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

// Path returns the run log file path.
func (fl *FileLogger) Path() string { return fl.runFile }

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }
func (fl *FileLogger) LogInfo(message string)  { fl.logWithLevel("INFO", message) }
func (fl *FileLogger) LogWarn(message string)  { fl.logWithLevel("WARN", message) }
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.LogDebug(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.LogInfo(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.LogWarn(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.LogError(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

// LogCaseResult records a finished case with its per-stage outcome.
// Stage detail is written at DEBUG level.
func (fl *FileLogger) LogCaseResult(done, total int, res models.CaseResult) {
	if !fl.shouldLog("info") {
		return
	}
	ts := time.Now().Format("15:04:05")
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%d/%d] %s: %s", ts, done, total, res.Case.ID, caseStatusLabel(res))
	if !res.Passed() && res.Reason != "" {
		fmt.Fprintf(&sb, " (%s)", res.Reason)
	}
	sb.WriteString("\n")
	if fl.shouldLog("debug") {
		for _, st := range res.Stages {
			fmt.Fprintf(&sb, "[%s]     %s: %s exit=%d elapsed=%s\n", ts, st.StageName, st.Status, st.ExitCode, st.Elapsed.Round(time.Millisecond))
		}
	}
	fl.writeRunLog(sb.String())
}

// LogSummary writes the run tally and every failure.
func (fl *FileLogger) LogSummary(s models.RunSummary) {
	ts := time.Now().Format("15:04:05")
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%s] === Run Summary ===\n", ts)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, report.ConsoleSummary(s))
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(s.Duration))
	for _, f := range s.Failures {
		stage := f.FailedStage
		if stage == "" {
			stage = "-"
		}
		fmt.Fprintf(&sb, "[%s]   - %s [%s/%s]: %s\n", ts, f.Case.ID, f.Status, stage, f.Reason)
	}
	fl.writeRunLog(sb.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
