package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/oracle"
)

// Decision is a judge's terminal classification of a case whose stages completed.
type Decision struct {
	Status   models.CaseStatus
	Reason   string
	Actual   []string
	Expected []string
	Baseline models.BaselineStatus
}

// Judge decides a case after every stage ran and artifacts were persisted.
type Judge interface {
	Decide(ctx context.Context, ws *Workspace, res models.CaseResult) Decision
}

// IncompleteClassifier is implemented by judges that still classify a case
// against the baseline when a stage timed out, failed to start or could not
// be prepared, and Decide was therefore never called.
type IncompleteClassifier interface {
	ClassifyIncomplete(tc models.TestCase) models.BaselineStatus
}

// FixtureJudge compares the {actual} artifact with the case's expected fixture
// after normalization.
type FixtureJudge struct {
	Match oracle.NormalizedDiffMatch
}

// Decide implements Judge.
func (j FixtureJudge) Decide(_ context.Context, ws *Workspace, _ models.CaseResult) Decision {
	c, err := j.Match.Compare(ws.Var(VarActual), ws.Case.Expectation.ExpectedPath)
	if err != nil {
		return Decision{Status: models.CaseFail, Reason: err.Error()}
	}
	d := Decision{Status: models.CasePass, Actual: c.Actual, Expected: c.Expected}
	if !c.Equal {
		d.Status = models.CaseFail
		d.Reason = oracle.OutputMismatchReason
	}
	return d
}

// ExpectationJudge compares the exit status of the last stage with the case's
// inline annotation.
type ExpectationJudge struct{}

// Decide implements Judge.
func (ExpectationJudge) Decide(_ context.Context, ws *Workspace, res models.CaseResult) Decision {
	last, ok := res.LastStage()
	if !ok {
		return Decision{Status: models.CaseFail, Reason: "no stage ran"}
	}
	exp := ws.Case.Expectation
	if (last.ExitCode == 0) == exp.ExpectSuccess {
		return Decision{Status: models.CasePass}
	}
	return Decision{
		Status: models.CaseFail,
		Reason: fmt.Sprintf("verdict mismatch (expected %s, exit %d)", exp.Token, last.ExitCode),
	}
}

// BaselineJudge compares the persisted .out and .err of a case byte for byte
// with the baseline tree.
type BaselineJudge struct {
	OutputRoot   string
	BaselineRoot string
	Match        oracle.ExactBaselineMatch
}

// Entry builds the oracle entry comparing tc's raw streams with the baseline.
func (j BaselineJudge) Entry(tc models.TestCase) models.BatchEntry {
	pairs := make([]models.ArtifactPair, 0, 2)
	for _, ext := range []string{".out", ".err"} {
		pairs = append(pairs, models.ArtifactPair{
			Actual:   tc.ArtifactPath(j.OutputRoot, ext),
			Expected: tc.ArtifactPath(j.BaselineRoot, ext),
		})
	}
	return models.BatchEntry{CaseID: tc.ID, Artifacts: pairs}
}

// Decide implements Judge.
func (j BaselineJudge) Decide(ctx context.Context, ws *Workspace, _ models.CaseResult) Decision {
	batch := models.OracleBatch{Number: 1, Entries: []models.BatchEntry{j.Entry(ws.Case)}}
	verdicts, err := j.Match.Judge(ctx, batch)
	if err != nil || len(verdicts) != 1 {
		return Decision{Status: models.CaseFail, Reason: fmt.Sprintf("baseline comparison failed: %v", err), Baseline: models.BaselineRegression}
	}
	v := verdicts[0]
	switch {
	case v.New:
		return Decision{Status: models.CasePass, Baseline: models.BaselineNew}
	case v.Correct:
		return Decision{Status: models.CasePass, Baseline: models.BaselineMatch}
	default:
		return Decision{Status: models.CaseFail, Reason: v.Reason, Baseline: models.BaselineRegression}
	}
}

// ClassifyIncomplete implements IncompleteClassifier. A case with no baseline
// .out or .err is new; otherwise its missing output differs from the baseline.
func (j BaselineJudge) ClassifyIncomplete(tc models.TestCase) models.BaselineStatus {
	for _, pair := range j.Entry(tc).Artifacts {
		if _, err := os.Stat(pair.Expected); err == nil {
			return models.BaselineRegression
		}
	}
	return models.BaselineNew
}
