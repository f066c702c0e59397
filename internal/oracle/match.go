package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/normalize"
)

// OutputMismatchReason is recorded when a comparison strategy finds a difference.
const OutputMismatchReason = "output mismatch"

// Comparison holds the normalized sides of a NormalizedDiffMatch comparison.
type Comparison struct {
	Equal    bool
	Actual   []string
	Expected []string
}

// NormalizedDiffMatch compares artifacts line by line after normalization.
type NormalizedDiffMatch struct{}

// Name returns the strategy name.
func (NormalizedDiffMatch) Name() string { return "normalized" }

// Compare normalizes both files and compares them.
func (NormalizedDiffMatch) Compare(actualPath, expectedPath string) (Comparison, error) {
	actual, err := os.ReadFile(actualPath)
	if err != nil {
		return Comparison{}, fmt.Errorf("read actual output: %w", err)
	}
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return Comparison{}, fmt.Errorf("read expected output: %w", err)
	}
	c := Comparison{
		Actual:   normalize.Lines(string(actual)),
		Expected: normalize.Lines(string(expected)),
	}
	c.Equal = normalize.EqualLines(c.Actual, c.Expected)
	return c, nil
}

// Judge compares every artifact pair of every entry. Unreadable files fail the entry.
func (m NormalizedDiffMatch) Judge(_ context.Context, batch models.OracleBatch) ([]models.Verdict, error) {
	verdicts := make([]models.Verdict, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		v := models.Verdict{CaseID: e.CaseID, Correct: len(e.Artifacts) > 0}
		for _, pair := range e.Artifacts {
			c, err := m.Compare(pair.Actual, pair.Expected)
			if err != nil {
				v.Correct, v.Reason = false, err.Error()
				break
			}
			if !c.Equal {
				v.Correct, v.Reason = false, OutputMismatchReason
				break
			}
		}
		if len(e.Artifacts) == 0 {
			v.Reason = "no artifacts to compare"
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// ExactBaselineMatch compares artifacts byte for byte against a baseline.
// A missing baseline file is never a regression. When every baseline file of
// an entry is missing the verdict is marked New.
type ExactBaselineMatch struct{}

// Name returns the strategy name.
func (ExactBaselineMatch) Name() string { return "exact" }

// Judge compares each entry's artifacts with their baselines.
func (ExactBaselineMatch) Judge(_ context.Context, batch models.OracleBatch) ([]models.Verdict, error) {
	verdicts := make([]models.Verdict, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		verdicts = append(verdicts, judgeExact(e))
	}
	return verdicts, nil
}

func judgeExact(e models.BatchEntry) models.Verdict {
	v := models.Verdict{CaseID: e.CaseID, Correct: true}
	missing := 0
	for _, pair := range e.Artifacts {
		want, err := os.ReadFile(pair.Expected)
		if errors.Is(err, fs.ErrNotExist) {
			missing++
			continue
		}
		if err != nil {
			return models.Verdict{CaseID: e.CaseID, Reason: fmt.Sprintf("read baseline: %v", err)}
		}
		got, err := os.ReadFile(pair.Actual)
		if err != nil {
			return models.Verdict{CaseID: e.CaseID, Reason: fmt.Sprintf("read output: %v", err)}
		}
		if !bytes.Equal(got, want) {
			return models.Verdict{CaseID: e.CaseID, Reason: fmt.Sprintf("%s differs from baseline", filepath.Base(pair.Actual))}
		}
	}
	if missing == len(e.Artifacts) {
		v.New = true
		v.Reason = "no baseline found"
	}
	return v
}
