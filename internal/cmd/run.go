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

// SummaryFile is written at the top of every run and verdict output directory.
const SummaryFile = "summary"

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <test-set>",
		Short: "Run a test set through the IR pipeline and compare program output",
		Long: `Run every case under <test-root>/<test-set>/src through three stages:

  1. ir_pipeline <case.rx> test.ll
  2. clang -S --target=<target> test.ll -o test.s.source   (then @plt stripping)
  3. reimu -i=test.in -o=test.out                          (in the case work dir)

The builtin prelude is compiled once per run and copied into every work dir.
Each case's test.out is compared with its .out fixture after normalizing
whitespace. Outputs, logs and a summary file are written to
<output-root>/<test-set>-ir unless --output is given.

Examples:
  rxharness run IR-1
  rxharness run IR-1 --filter 'loop' --case-workers 8
  rxharness run IR-1 --clang clang-17 --reimu-timeout 20s --keep-temps`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	addSelectionFlags(cmd)
	cmd.Flags().String("output", "", "Directory for case outputs (default: <output-root>/<test-set>-ir)")
	cmd.Flags().Bool("preserve-intermediates", false, "Copy .ll, .s.source and .s next to each case's outputs")
	cmd.Flags().Bool("keep-temps", false, "Keep the temporary work directory")
	cmd.Flags().Int("case-workers", 0, "Cases executed concurrently (default from config)")
	cmd.Flags().String("ir-pipeline", "", "Path to the ir_pipeline binary")
	cmd.Flags().String("clang", "", "clang executable (default: first of clang-18..clang-15, clang)")
	cmd.Flags().String("reimu", "", "reimu executable")
	cmd.Flags().String("target", "", "clang target triple")
	cmd.Flags().String("builtin", "", "Path to builtin.c")
	cmd.Flags().Duration("ir-timeout", 0, "ir_pipeline timeout")
	cmd.Flags().Duration("clang-timeout", 0, "clang timeout")
	cmd.Flags().Duration("reimu-timeout", 0, "reimu timeout")
	cmd.Flags().Duration("builtin-timeout", 0, "builtin.c compile timeout")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	set := args[0]
	ctx := cmd.Context()

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	cfg := sess.cfg

	clang, err := pipeline.DetectClang(cfg.Tools.Clang)
	if err != nil {
		return err
	}
	irPipeline, err := pipeline.ResolveTool(cfg.Tools.IRPipeline)
	if err != nil {
		return fmt.Errorf("ir_pipeline binary: %w", err)
	}
	reimu, err := pipeline.ResolveTool(cfg.Tools.Reimu)
	if err != nil {
		return fmt.Errorf("reimu: %w", err)
	}

	filter, include, err := selection(cmd)
	if err != nil {
		return err
	}
	srcDir := filepath.Join(cfg.TestRoot, set, "src")
	cases, err := discovery.Discover(srcDir, discovery.Options{
		Filter:  filter,
		Include: include,
		Mode:    discovery.ModeFixture,
	})
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		sess.log.Warnf("%v under %s", discovery.ErrNoCases, srcDir)
		return nil
	}

	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = filepath.Join(cfg.OutputRoot, set+"-ir")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	sess.log.Infof("Using clang=%s, reimu=%s, target=%s", clang, reimu, cfg.Tools.Target)

	workRoot, err := os.MkdirTemp("", "rxharness-ir-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	if keep, _ := cmd.Flags().GetBool("keep-temps"); keep {
		sess.log.Infof("Keeping temporary files at %s", workRoot)
	} else {
		sess.log.Debugf("Working directory: %s", workRoot)
		defer os.RemoveAll(workRoot)
	}

	builtin, err := pipeline.CompileBuiltin(ctx, clang, cfg.Tools.Target, cfg.Tools.Builtin, workRoot, cfg.Timeouts.Builtin)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(pipeline.Config{
		Stages: pipeline.IRStages(
			pipeline.Toolchain{IRPipeline: irPipeline, Clang: clang, Reimu: reimu},
			pipeline.StageTimeouts{IR: cfg.Timeouts.IR, Clang: cfg.Timeouts.Clang, Reimu: cfg.Timeouts.Reimu},
		),
		WorkRoot:              filepath.Join(workRoot, "cases"),
		OutputRoot:            outDir,
		Vars:                  map[string]string{pipeline.VarTarget: cfg.Tools.Target},
		Builtin:               builtin,
		Persist:               pipeline.PersistArtifact,
		Judge:                 pipeline.FixtureJudge{},
		PreserveIntermediates: cfg.PreserveIntermediates,
		CaseWorkers:           cfg.CaseWorkers,
		Logger:                sess.log,
	})

	sess.log.Infof("Running %d case(s) from %s", len(cases), srcDir)
	results, summary := sess.execute(ctx, runner, cases)

	summaryPath := filepath.Join(outDir, SummaryFile)
	if err := report.WriteFile(summaryPath, report.RenderSummary(summary)); err != nil {
		return err
	}
	sess.finish(ctx, "run", set, summary, results)
	sess.log.Infof("Summary written to %s", summaryPath)

	if summary.Failed > 0 {
		return failuresError("%d of %d case(s) failed", summary.Failed, summary.Total)
	}
	return nil
}
