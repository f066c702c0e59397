package models

import "time"

// CaseStatus is the terminal status of a test case.
type CaseStatus string

// Case status constants
const (
	CasePass             CaseStatus = "PASS"
	CaseFail             CaseStatus = "FAIL"
	CaseTimeout          CaseStatus = "TIMEOUT"
	CaseMissingArtifacts CaseStatus = "MISSING"
)

// BaselineStatus classifies a case against the accepted baseline.
type BaselineStatus string

// Baseline status constants
const (
	BaselineUnchecked  BaselineStatus = ""           // No baseline comparison applies
	BaselineMatch      BaselineStatus = "match"      // Current output equals the baseline
	BaselineRegression BaselineStatus = "regression" // Current output differs from the baseline
	BaselineNew        BaselineStatus = "new"        // No baseline exists for this case
)

// CaseResult represents the result of driving one case through its pipeline.
// It is written once and never mutated after the runner returns it.
type CaseResult struct {
	Case        TestCase
	Stages      []StageResult  // Stages actually run, in order
	Status      CaseStatus     // Terminal status
	FailedStage string         // Name of the failing stage, if any
	Reason      string         // Single-line human readable reason
	Actual      []string       // Normalized actual output, when a comparison applied
	Expected    []string       // Normalized expected output, when a comparison applied
	Baseline    BaselineStatus // Classification against the baseline (regress mode)
	Duration    time.Duration  // Wall time for the whole case
}

// Passed returns true if the case ended in CasePass.
func (r CaseResult) Passed() bool {
	return r.Status == CasePass
}

// LastStage returns the last executed stage and false when no stage ran.
func (r CaseResult) LastStage() (StageResult, bool) {
	if len(r.Stages) == 0 {
		return StageResult{}, false
	}
	return r.Stages[len(r.Stages)-1], true
}

// RunSummary represents the aggregate result of a run
type RunSummary struct {
	Total       int           // Total number of cases
	Passed      int           // Cases that ended in PASS
	Failed      int           // Cases that ended in FAIL, TIMEOUT or MISSING
	New         int           // Cases without a baseline (regress mode)
	Regressions int           // Cases differing from the baseline (regress mode)
	Duration    time.Duration // Total execution time
	Failures    []CaseResult  // Failing cases sorted by id
}
