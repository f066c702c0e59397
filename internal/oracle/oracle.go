// Package oracle decides whether cases are correct. Strategies range from file
// comparisons against expected or baseline artifacts to a remote verdict
// service speaking a small text protocol.
package oracle

import (
	"context"
	"fmt"

	"github.com/harrison/rxharness/internal/models"
)

// NoVerdictReason is recorded for a requested case absent from a parsed response.
const NoVerdictReason = "oracle did not return a verdict for this test"

// Oracle judges every entry of a batch. Implementations return one verdict per
// entry in entry order. A returned error means the whole batch could not be judged.
type Oracle interface {
	Name() string
	Judge(ctx context.Context, batch models.OracleBatch) ([]models.Verdict, error)
}

// FailBatch marks every entry in batch as incorrect with the given reason.
func FailBatch(batch models.OracleBatch, reason string) []models.Verdict {
	verdicts := make([]models.Verdict, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		verdicts = append(verdicts, models.Verdict{CaseID: e.CaseID, Correct: false, Reason: reason})
	}
	return verdicts
}

// TransportFailureReason formats the reason recorded for a batch whose remote call failed.
func TransportFailureReason(err error) string {
	return fmt.Sprintf("the analysis call for this batch failed: %v", err)
}

// Resolve maps every requested id of batch to its parsed verdict. Ids missing
// from parsed fail with NoVerdictReason. Parsed verdicts for ids that were not
// requested are ignored.
func Resolve(batch models.OracleBatch, parsed map[string]models.Verdict) []models.Verdict {
	verdicts := make([]models.Verdict, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		v, ok := parsed[e.CaseID]
		if !ok {
			verdicts = append(verdicts, models.Verdict{CaseID: e.CaseID, Correct: false, Reason: NoVerdictReason})
			continue
		}
		v.CaseID = e.CaseID
		verdicts = append(verdicts, v)
	}
	return verdicts
}
