package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/config"
	"github.com/harrison/rxharness/internal/discovery"
	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/oracle"
	"github.com/harrison/rxharness/internal/ratelimit"
	"github.com/harrison/rxharness/internal/report"
	"github.com/harrison/rxharness/internal/scheduler"
)

// rateLimitSafetyBuffer is added to every advertised reset time before retrying.
const rateLimitSafetyBuffer = 5 * time.Second

// NewJudgeCommand creates the judge command
func NewJudgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge <stage>",
		Short: "Batch raw compiler output and have the remote oracle judge it",
		Long: `Collect every case under <test-root>/<stage> together with its raw
compiler output from the last regress run and group them into batches.
Each batch is written to <report-dir>/<stage>/report_batch_<n>.txt.

With --analyze every batch is sent to the oracle (bounded workers, paced
submissions). Incorrect cases are written to the fail log and described
in a markdown report. Exits 1 when any case was judged incorrect.

--use-fail-list restricts the cases to those named by the previous fail
log and the regression log.

Examples:
  rxharness judge semantic-1
  rxharness judge semantic-1 --analyze --workers 8
  rxharness judge semantic-1 --analyze --use-fail-list --transport command`,
		Args: cobra.ExactArgs(1),
		RunE: runJudge,
	}

	addSelectionFlags(cmd)
	cmd.Flags().Bool("analyze", false, "Send the batches to the oracle")
	cmd.Flags().Bool("use-fail-list", false, "Only judge cases listed in the fail log or regression log")
	cmd.Flags().String("transport", "", "Oracle transport: http or command")
	cmd.Flags().Int("workers", 0, "Concurrent oracle requests (default from config)")
	cmd.Flags().Int("batch-size", 0, "Cases per oracle request (default from config)")
	cmd.Flags().Duration("request-delay", 0, "Minimum delay between oracle submissions")
	cmd.Flags().String("html-report", "", "Also render the failure report as HTML to this path")

	return cmd
}

func runJudge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stage := args[0]

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	cfg := sess.cfg

	filter, include, err := selection(cmd)
	if err != nil {
		return err
	}
	opts := discovery.Options{Filter: filter, Include: include, Subdir: stage}

	if useFailList, _ := cmd.Flags().GetBool("use-fail-list"); useFailList {
		ids, err := failListIDs(cfg)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			sess.log.Infof("No failed tests to re-run.")
			return nil
		}
		sess.log.Infof("Re-running %d test(s) from %s and %s", len(ids), cfg.Oracle.FailLog, cfg.RegressionLog)
		opts.IDs = ids
	}

	cases, err := discovery.Discover(cfg.TestRoot, opts)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		sess.log.Warnf("%v under %s", discovery.ErrNoCases, filepath.Join(cfg.TestRoot, stage))
		return nil
	}

	entries, err := batchEntries(cases, cfg.RawOutputDir)
	if err != nil {
		return err
	}
	batches := oracle.Split(entries, cfg.Oracle.BatchSize)

	reportDir := filepath.Join(cfg.Oracle.ReportDir, filepath.FromSlash(stage))
	if err := report.WriteBatchFiles(reportDir, batches); err != nil {
		return err
	}
	sess.log.Infof("Generated %d batch report(s) in %s", len(batches), reportDir)

	if analyze, _ := cmd.Flags().GetBool("analyze"); !analyze {
		return nil
	}

	svc, err := newOracleService(cfg, stage, sess.log)
	if err != nil {
		return err
	}
	if err := svc.ResetLogDir(); err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Config{
		MaxWorkers: cfg.Oracle.MaxWorkers,
		Pacing:     cfg.Oracle.RequestDelay,
	})
	sess.log.Infof("Analyzing %d batch(es) with %d worker(s)", len(batches), sched.MaxWorkers())

	start := time.Now()
	outcomes := scheduler.Run(ctx, sched, batches, svc.Judge)

	var verdicts []models.Verdict
	for i, out := range outcomes {
		if out.Err != nil {
			sess.log.Errorf("batch %d failed: %v", batches[i].Number, out.Err)
			verdicts = append(verdicts, oracle.FailBatch(batches[i], oracle.TransportFailureReason(out.Err))...)
			continue
		}
		verdicts = append(verdicts, out.Value...)
	}

	failures := report.VerdictFailures(entries, verdicts)
	if err := writeJudgeReports(cfg, stage, failures); err != nil {
		return err
	}

	results := verdictResults(cases, verdicts)
	sess.finish(ctx, "judge", stage, report.Summarize(results, time.Since(start)), results)

	if len(failures) > 0 {
		sess.log.Warnf("%d incorrect case(s) written to %s", len(failures), cfg.Oracle.FailLog)
		return failuresError("%d case(s) judged incorrect", len(failures))
	}
	sess.log.Infof("All processed tests passed.")
	return nil
}

// failListIDs unions the oracle fail log and the regression log.
func failListIDs(cfg *config.Config) ([]string, error) {
	var ids []string
	for _, path := range []string{cfg.Oracle.FailLog, cfg.RegressionLog} {
		list, err := report.ReadIDList(path)
		if err != nil {
			return nil, err
		}
		ids = append(ids, list...)
	}
	return ids, nil
}

// batchEntries pairs every case source with its raw compiler output.
func batchEntries(cases []models.TestCase, rawDir string) ([]models.BatchEntry, error) {
	entries := make([]models.BatchEntry, 0, len(cases))
	for _, tc := range cases {
		src, err := os.ReadFile(tc.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", tc.RelPath, err)
		}
		stdout, err := readOptional(tc.ArtifactPath(rawDir, ".out"))
		if err != nil {
			return nil, err
		}
		stderr, err := readOptional(tc.ArtifactPath(rawDir, ".err"))
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.BatchEntry{
			CaseID: tc.ID,
			Source: string(src),
			Output: oracle.FormatOutput(stdout, stderr),
		})
	}
	return entries, nil
}

// readOptional returns the file content, or "" when the file does not exist.
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func newOracleService(cfg *config.Config, stage string, log runLogger) (*oracle.Service, error) {
	prompt, err := oracle.LoadSystemPrompt(cfg.Oracle.SystemPromptFile)
	if err != nil {
		return nil, err
	}
	waiter := ratelimit.NewWaiter(cfg.Oracle.MaxRateLimitWait, rateLimitSafetyBuffer, log)

	var transport oracle.Transport
	switch cfg.Oracle.Transport {
	case config.TransportCommand:
		transport = &oracle.CommandTransport{
			Path:    cfg.Oracle.Command,
			Timeout: cfg.Oracle.Timeout,
			Waiter:  waiter,
		}
	default:
		apiKey := os.Getenv(cfg.Oracle.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.Oracle.APIKeyEnv)
		}
		transport = &oracle.HTTPTransport{
			Endpoint:    cfg.Oracle.Endpoint,
			Model:       cfg.Oracle.Model,
			APIKey:      apiKey,
			MaxTokens:   cfg.Oracle.MaxTokens,
			Temperature: cfg.Oracle.Temperature,
			Timeout:     cfg.Oracle.Timeout,
			Waiter:      waiter,
		}
	}

	return oracle.NewService(transport, oracle.ServiceConfig{
		SystemPrompt: prompt,
		LogDir:       cfg.Oracle.LogDir,
		Set:          stage,
		RunID:        uuid.NewString(),
	}, log), nil
}

// writeJudgeReports writes the fail log, the markdown report and the optional HTML report.
func writeJudgeReports(cfg *config.Config, stage string, failures []report.Failure) error {
	if err := report.WriteIDList(cfg.Oracle.FailLog, report.FailureIDs(failures)); err != nil {
		return err
	}
	md := report.RenderFailureReport(stage, failures)
	if err := report.WriteFile(cfg.Oracle.ReportFile, md); err != nil {
		return err
	}
	if cfg.Oracle.HTMLReport == "" {
		return nil
	}
	page, err := report.RenderHTML("Analysis Report: "+stage, md)
	if err != nil {
		return err
	}
	return report.WriteFile(cfg.Oracle.HTMLReport, page)
}

// verdictResults maps oracle verdicts onto case results for the run history.
func verdictResults(cases []models.TestCase, verdicts []models.Verdict) []models.CaseResult {
	byID := make(map[string]models.Verdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.CaseID] = v
	}
	results := make([]models.CaseResult, 0, len(cases))
	for _, tc := range cases {
		v, ok := byID[tc.ID]
		res := models.CaseResult{Case: tc, Status: models.CasePass}
		if !ok || !v.Correct {
			res.Status = models.CaseFail
			res.FailedStage = "oracle"
			res.Reason = v.Reason
			if !ok {
				res.Reason = oracle.NoVerdictReason
			}
		}
		results = append(results, res)
	}
	return results
}
