// Package pipeline drives test cases through ordered external-process stages,
// persists their evidence and hands completed cases to a judge.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/normalize"
)

// MissingArtifactsReason is recorded when a fixture case lacks its .in or .out file.
const MissingArtifactsReason = "missing .in or .out file"

// PersistMode selects which outputs are written to the output tree.
type PersistMode int

const (
	// PersistArtifact copies the {actual} artifact to <id>.out and writes <id>.log.
	PersistArtifact PersistMode = iota
	// PersistStreams writes the last stage's stdout to <id>.out and stderr to
	// <id>.err, and nothing else, so the tree can be promoted as a baseline.
	PersistStreams
	// PersistCombined writes stdout followed by stderr to <id>.out and writes <id>.log.
	PersistCombined
)

// Logger is the logging surface used by the runner.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Config configures a Runner.
type Config struct {
	Stages     []models.Stage
	WorkRoot   string            // Per-case scratch directories are created under here
	OutputRoot string            // Persisted evidence mirrors case ids under here
	Vars       map[string]string // Extra template variables such as target
	Builtin    string            // Compiled prelude copied into every work dir; empty skips
	Persist    PersistMode
	Judge      Judge // Nil passes every case whose stages all succeed

	PreserveIntermediates bool
	CaseWorkers           int // Cases run concurrently by RunAll; values < 1 mean 1
	Logger                Logger
}

// Runner executes case pipelines. It holds no per-case state and is safe for
// concurrent use.
type Runner struct {
	cfg Config
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.CaseWorkers < 1 {
		cfg.CaseWorkers = 1
	}
	return &Runner{cfg: cfg}
}

// Execute drives tc through every stage in order and stops at the first stage
// that times out or exits non-zero. Evidence is persisted whatever the outcome.
func (r *Runner) Execute(ctx context.Context, tc models.TestCase) models.CaseResult {
	start := time.Now()
	res := models.CaseResult{Case: tc}

	if tc.Expectation.Kind == models.ExpectFixture &&
		(!isFile(tc.Expectation.InputPath) || !isFile(tc.Expectation.ExpectedPath)) {
		res.Status = models.CaseMissingArtifacts
		res.Reason = MissingArtifactsReason
		res.Duration = time.Since(start)
		return res
	}

	ws, err := newWorkspace(r.cfg.WorkRoot, tc, r.cfg.Vars, r.cfg.Builtin)
	if err != nil {
		res.Status = models.CaseFail
		res.Reason = NewCaseError(tc.ID, "prepare workspace", err).Error()
		res.Baseline = r.classifyIncomplete(tc)
		res.Duration = time.Since(start)
		return res
	}

	var log strings.Builder
	for _, stage := range r.cfg.Stages {
		argv := ws.ExpandAll(stage.Command)
		dir := ws.Dir
		if stage.WorkDir != "" {
			dir = ws.Expand(stage.WorkDir)
		}
		r.debugf("%s: %s %v", tc.ID, stage.Name, argv)

		inv := Invoke(ctx, argv, dir, stage.Timeout)
		res.Stages = append(res.Stages, models.StageResult{
			StageName: stage.Name,
			Status:    inv.Status,
			ExitCode:  inv.ExitCode,
			Stdout:    inv.Stdout,
			Stderr:    inv.Stderr,
			Elapsed:   inv.Elapsed,
		})
		appendLog(&log, stage.Name, inv)

		if inv.Status == models.StageTimeout {
			res.Status = models.CaseTimeout
			res.FailedStage = stage.Name
			res.Reason = fmt.Sprintf("%s timeout (>%s): %s", stage.Name, formatSeconds(stage.Timeout), lastLine(inv.Stdout, inv.Stderr))
			break
		}
		if inv.Status == models.StageNonZero && (!stage.AcceptNonZero || inv.Err != nil) {
			res.Status = models.CaseFail
			res.FailedStage = stage.Name
			res.Reason = fmt.Sprintf("%s exit %d: %s", stage.Name, inv.ExitCode, lastLine(inv.Stdout, inv.Stderr))
			break
		}
		if stage.Fixup != nil {
			if err := normalize.ApplyFile(stage.Fixup.Hook, ws.Expand(stage.Fixup.From), ws.Expand(stage.Fixup.To)); err != nil {
				res.Status = models.CaseFail
				res.FailedStage = stage.Name
				res.Reason = fmt.Sprintf("%s fixup: %v", stage.Name, err)
				break
			}
		}
	}

	r.persist(ws, res, log.String())

	if res.Status == "" {
		res.Status = models.CasePass
		if r.cfg.Judge != nil {
			d := r.cfg.Judge.Decide(ctx, ws, res)
			res.Status = d.Status
			res.Reason = d.Reason
			res.Actual = d.Actual
			res.Expected = d.Expected
			res.Baseline = d.Baseline
		}
	} else {
		res.Baseline = r.classifyIncomplete(tc)
	}

	res.Duration = time.Since(start)
	return res
}

// classifyIncomplete asks the judge to place a case whose stages did not
// complete relative to the baseline.
func (r *Runner) classifyIncomplete(tc models.TestCase) models.BaselineStatus {
	if c, ok := r.cfg.Judge.(IncompleteClassifier); ok {
		return c.ClassifyIncomplete(tc)
	}
	return models.BaselineUnchecked
}

// Progress is called once per finished case with the number of finished cases.
type Progress func(done, total int, res models.CaseResult)

// RunAll executes every case with at most CaseWorkers in flight and returns
// results in the order of cases. progress may be nil; calls to it are serialized.
func (r *Runner) RunAll(ctx context.Context, cases []models.TestCase, progress Progress) []models.CaseResult {
	results := make([]models.CaseResult, len(cases))
	p := pool.New().WithMaxGoroutines(r.cfg.CaseWorkers)

	var mu sync.Mutex
	done := 0
	for i, tc := range cases {
		i, tc := i, tc
		p.Go(func() {
			res := r.Execute(ctx, tc)
			results[i] = res
			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(cases), res)
				mu.Unlock()
			}
		})
	}
	p.Wait()
	return results
}

func (r *Runner) persist(ws *Workspace, res models.CaseResult, log string) {
	tc := ws.Case
	root := r.cfg.OutputRoot
	if root == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(tc.ArtifactPath(root, ".out")), 0755); err != nil {
		r.warnf("%v", NewCaseError(tc.ID, "create output dir", err))
		return
	}

	write := func(ext, content string) {
		if err := os.WriteFile(tc.ArtifactPath(root, ext), []byte(content), 0644); err != nil {
			r.warnf("%v", NewCaseError(tc.ID, "write "+ext, err))
		}
	}

	last, ran := res.LastStage()
	switch r.cfg.Persist {
	case PersistStreams:
		if ran {
			write(".out", last.Stdout)
			write(".err", last.Stderr)
		}
		return
	case PersistCombined:
		if ran {
			out := last.Stdout
			if last.Stderr != "" {
				if out != "" {
					out += "\n"
				}
				out += last.Stderr
			}
			write(".out", out)
		}
	default:
		actual := tc.ArtifactPath(root, ".out")
		if isFile(ws.Var(VarActual)) {
			if err := copyFile(ws.Var(VarActual), actual); err != nil {
				r.warnf("%v", NewCaseError(tc.ID, "copy actual output", err))
			}
		} else {
			_ = os.Remove(actual)
		}
	}

	write(".log", strings.TrimRight(log, "\n")+"\n")

	if r.cfg.PreserveIntermediates {
		for _, im := range intermediates {
			src := ws.Var(im.Var)
			if !isFile(src) {
				continue
			}
			if err := copyFile(src, tc.ArtifactPath(root, im.Ext)); err != nil {
				r.warnf("%v", NewCaseError(tc.ID, "preserve "+im.Ext, err))
			}
		}
	}
}

func appendLog(sb *strings.Builder, stage string, inv Invocation) {
	sb.WriteString("== ")
	sb.WriteString(stage)
	sb.WriteString(" ==\n")
	if s := strings.TrimRight(inv.Stdout, " \t\r\n"); s != "" {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	if s := strings.TrimRight(inv.Stderr, " \t\r\n"); s != "" {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
}

// lastLine returns the last non-blank line of stderr, or of stdout when stderr
// is blank, or "<no output>".
func lastLine(stdout, stderr string) string {
	text := stderr
	if strings.TrimSpace(text) == "" {
		text = stdout
	}
	if line := normalize.LastLine(text); line != "" {
		return line
	}
	return "<no output>"
}

func (r *Runner) debugf(format string, args ...interface{}) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Debugf(format, args...)
	}
}

func (r *Runner) warnf(format string, args ...interface{}) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Warnf(format, args...)
	}
}
