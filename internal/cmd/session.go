package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/config"
	"github.com/harrison/rxharness/internal/history"
	"github.com/harrison/rxharness/internal/logger"
	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/pipeline"
	"github.com/harrison/rxharness/internal/report"
)

// runLogger is implemented by every logger a command writes to.
type runLogger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	LogCaseResult(done, total int, res models.CaseResult)
	LogSummary(s models.RunSummary)
}

// multiLogger implements runLogger by delegating to multiple loggers
type multiLogger struct {
	loggers []runLogger
}

func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

func (ml *multiLogger) Debugf(format string, args ...interface{}) {
	ml.LogDebug(fmt.Sprintf(format, args...))
}

func (ml *multiLogger) Infof(format string, args ...interface{}) {
	ml.LogInfo(fmt.Sprintf(format, args...))
}

func (ml *multiLogger) Warnf(format string, args ...interface{}) {
	ml.LogWarn(fmt.Sprintf(format, args...))
}

func (ml *multiLogger) Errorf(format string, args ...interface{}) {
	ml.LogError(fmt.Sprintf(format, args...))
}

// LogCaseResult forwards to all loggers
func (ml *multiLogger) LogCaseResult(done, total int, res models.CaseResult) {
	for _, l := range ml.loggers {
		l.LogCaseResult(done, total, res)
	}
}

// LogSummary forwards to all loggers
func (ml *multiLogger) LogSummary(s models.RunSummary) {
	for _, l := range ml.loggers {
		l.LogSummary(s)
	}
}

// loadConfig loads the config file, applies flag overrides, resolves relative
// paths against the project root and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.MergeWithFlags(flagOverrides(cmd))
	cfg.ResolvePaths(root)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session bundles the per-invocation configuration, loggers and history store.
type session struct {
	cfg     *config.Config
	log     runLogger
	fileLog *logger.FileLogger
	store   *history.Store
	started time.Time
}

// openSession loads configuration and opens the loggers and history store.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, started: time.Now()}
	console := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	loggers := []runLogger{console}

	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		s.fileLog = fileLog
		loggers = append(loggers, fileLog)
	}
	s.log = &multiLogger{loggers: loggers}

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			// A broken history database does not stop the run.
			s.log.Warnf("run history disabled: %v", err)
		} else {
			s.store = store
		}
	}
	return s, nil
}

// Close releases the history store and the file logger.
func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.fileLog != nil {
		s.fileLog.Close()
	}
}

// execute runs cases through runner, logging each result as it completes.
func (s *session) execute(ctx context.Context, runner *pipeline.Runner, cases []models.TestCase) ([]models.CaseResult, models.RunSummary) {
	start := time.Now()
	results := runner.RunAll(ctx, cases, s.log.LogCaseResult)
	return results, report.Summarize(results, time.Since(start))
}

// finish logs the summary and records the run in history.
func (s *session) finish(ctx context.Context, mode, set string, summary models.RunSummary, results []models.CaseResult) {
	s.log.LogSummary(summary)
	if s.store == nil {
		return
	}
	id, err := s.store.RecordRun(ctx, mode, set, s.started, summary, results)
	if err != nil {
		s.log.Warnf("failed to record run history: %v", err)
		return
	}
	s.log.Debugf("recorded run %s", id)
}
