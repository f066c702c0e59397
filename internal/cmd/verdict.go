package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/discovery"
	"github.com/harrison/rxharness/internal/pipeline"
	"github.com/harrison/rxharness/internal/report"
)

// NewVerdictCommand creates the verdict command
func NewVerdictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verdict <test-set>",
		Short: "Check compiler exit status against each case's Verdict annotation",
		Long: `Run the semantic pipeline on every case under <test-root>/<test-set>/src
and compare its exit status with the case's "Verdict: <token>" line.
pass/success/ok expect exit 0; fail/failure/error expect a non-zero exit.

Combined output is written to <output-root>/<test-set>/<case>.out and the
mismatch summary to <output-root>/<test-set>/summary. Exits 2 when any
case mismatches its annotation.`,
		Args: cobra.ExactArgs(1),
		RunE: runVerdict,
	}

	addSelectionFlags(cmd)
	cmd.Flags().String("semantic", "", "Path to the semantic_pipeline binary")
	cmd.Flags().Duration("compile-timeout", 0, "Per-case timeout")
	cmd.Flags().Int("case-workers", 0, "Cases executed concurrently (default from config)")

	return cmd
}

func runVerdict(cmd *cobra.Command, args []string) error {
	set := args[0]
	ctx := cmd.Context()

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	cfg := sess.cfg

	binary, err := pipeline.ResolveTool(cfg.Tools.Semantic)
	if err != nil {
		return fmt.Errorf("semantic_pipeline binary: %w", err)
	}

	filter, include, err := selection(cmd)
	if err != nil {
		return err
	}
	srcDir := filepath.Join(cfg.TestRoot, set, "src")
	cases, err := discovery.Discover(srcDir, discovery.Options{
		Filter:  filter,
		Include: include,
		Mode:    discovery.ModeInline,
	})
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		sess.log.Warnf("%v under %s", discovery.ErrNoCases, srcDir)
		return nil
	}

	outDir := filepath.Join(cfg.OutputRoot, set)
	workRoot, err := os.MkdirTemp("", "rxharness-verdict-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workRoot)

	runner := pipeline.NewRunner(pipeline.Config{
		Stages:      pipeline.CompileStage("semantic", binary, cfg.Timeouts.Compile),
		WorkRoot:    workRoot,
		OutputRoot:  outDir,
		Persist:     pipeline.PersistCombined,
		Judge:       pipeline.ExpectationJudge{},
		CaseWorkers: cfg.CaseWorkers,
		Logger:      sess.log,
	})

	sess.log.Infof("Running %d case(s) from %s using %s", len(cases), srcDir, binary)
	results, summary := sess.execute(ctx, runner, cases)

	summaryPath := filepath.Join(outDir, SummaryFile)
	if err := report.WriteFile(summaryPath, report.RenderVerdictSummary(results)); err != nil {
		return err
	}
	sess.finish(ctx, "verdict", set, summary, results)
	sess.log.Infof("Summary written to %s", summaryPath)

	if summary.Failed > 0 {
		return &ExitError{
			Code: ExitMismatch,
			Err:  fmt.Errorf("%d verdict mismatch(es) out of %d case(s)", summary.Failed, summary.Total),
		}
	}
	return nil
}
