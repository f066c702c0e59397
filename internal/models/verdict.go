package models

// ArtifactPair names a current artifact and the file it is judged against.
type ArtifactPair struct {
	Actual   string
	Expected string
}

// BatchEntry is one case inside an OracleBatch, with the evidence the oracle judges.
type BatchEntry struct {
	CaseID    string
	Source    string         // Case source text
	Output    string         // Captured tool output, already labelled (stdout:/stderr:)
	Artifacts []ArtifactPair // On-disk evidence for the file comparison strategies
}

// OracleBatch is a group of cases submitted together to a judge.
type OracleBatch struct {
	Number  int          // 1-based batch number
	Entries []BatchEntry // Requested cases, in submission order
	Content string       // Rendered prompt payload; rendered from Entries when empty
}

// IDs returns the requested case ids in submission order.
func (b OracleBatch) IDs() []string {
	ids := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		ids = append(ids, e.CaseID)
	}
	return ids
}

// Verdict is a judge's decision for one case.
type Verdict struct {
	CaseID  string
	Correct bool
	New     bool   // Exact baseline strategy: no baseline existed (never a regression)
	Reason  string // Free text from the judge or a fixed failure reason
}
