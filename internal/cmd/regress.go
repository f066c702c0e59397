package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/baseline"
	"github.com/harrison/rxharness/internal/discovery"
	"github.com/harrison/rxharness/internal/pipeline"
	"github.com/harrison/rxharness/internal/report"
)

// NewRegressCommand creates the regress command
func NewRegressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regress [stage]",
		Short: "Compile cases and compare raw output with the promoted baseline",
		Long: `Compile every case under <test-root>/<stage> (or the whole test root),
write its stdout and stderr to <raw-output-dir>/<id>.out and .err, and
compare both byte for byte with <baseline-dir>. Cases without a baseline
are reported as new and never count as regressions. The raw output of
the selected stage (or all of it) is cleared before the run.

The sorted ids of regressed cases are written to the regression log.
Exits 1 when any case regressed.

--update-baseline promotes the current raw output instead of running,
like "rxharness baseline promote".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRegress,
	}

	addSelectionFlags(cmd)
	cmd.Flags().Bool("update-baseline", false, "Promote the current raw output to the baseline and exit")
	cmd.Flags().String("compiler", "", "Path to the compiler binary")
	cmd.Flags().Duration("compile-timeout", 0, "Per-case compile timeout")
	cmd.Flags().Int("case-workers", 0, "Cases executed concurrently (default from config)")

	return cmd
}

func runRegress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	cfg := sess.cfg

	if update, _ := cmd.Flags().GetBool("update-baseline"); update {
		return promoteBaseline(sess)
	}

	stage := ""
	if len(args) == 1 {
		stage = args[0]
	}

	compiler, err := pipeline.ResolveTool(cfg.Tools.Compiler)
	if err != nil {
		return fmt.Errorf("compiler executable: %w", err)
	}

	filter, include, err := selection(cmd)
	if err != nil {
		return err
	}
	cases, err := discovery.Discover(cfg.TestRoot, discovery.Options{
		Filter:  filter,
		Include: include,
		Subdir:  stage,
	})
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		sess.log.Warnf("%v under %s", discovery.ErrNoCases, filepath.Join(cfg.TestRoot, stage))
		return nil
	}

	// Raw output mirrors the latest run so a promote never picks up removed cases.
	rawDir := filepath.Join(cfg.RawOutputDir, filepath.FromSlash(stage))
	if err := os.RemoveAll(rawDir); err != nil {
		return fmt.Errorf("clear raw output %s: %w", rawDir, err)
	}

	if !baseline.Exists(cfg.BaselineDir) {
		sess.log.Warnf("no baseline at %s; every case will be reported as new", cfg.BaselineDir)
	}

	workRoot, err := os.MkdirTemp("", "rxharness-regress-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workRoot)

	runner := pipeline.NewRunner(pipeline.Config{
		Stages:     pipeline.CompileStage("compile", compiler, cfg.Timeouts.Compile),
		WorkRoot:   workRoot,
		OutputRoot: cfg.RawOutputDir,
		Persist:    pipeline.PersistStreams,
		Judge: pipeline.BaselineJudge{
			OutputRoot:   cfg.RawOutputDir,
			BaselineRoot: cfg.BaselineDir,
		},
		CaseWorkers: cfg.CaseWorkers,
		Logger:      sess.log,
	})

	sess.log.Infof("Found %d test(s) to run.", len(cases))
	results, summary := sess.execute(ctx, runner, cases)

	regressions := report.BuildRegressionSet(results)
	if err := report.WriteIDList(cfg.RegressionLog, regressions); err != nil {
		return err
	}
	set := stage
	if set == "" {
		set = "all"
	}
	sess.finish(ctx, "regress", set, summary, results)

	if len(regressions) > 0 {
		sess.log.Warnf("Detected %d regression failure(s). Written to %s", len(regressions), cfg.RegressionLog)
		return failuresError("%d regression(s) detected", len(regressions))
	}
	sess.log.Infof("No regressions detected.")
	return nil
}
