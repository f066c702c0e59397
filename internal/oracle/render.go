package oracle

import (
	"strings"

	"github.com/harrison/rxharness/internal/models"
)

// UserPreamble prefixes the rendered batch in the user message.
const UserPreamble = "Here are the test cases to analyze:\n\n"

// RenderBatch renders the batch payload: one block per entry, in entry order.
func RenderBatch(entries []models.BatchEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString("====== TEST: ")
		sb.WriteString(e.CaseID)
		sb.WriteString(" ======\n--- SOURCE ---\n")
		sb.WriteString(e.Source)
		sb.WriteString("\n--- OUTPUT ---\n")
		sb.WriteString(e.Output)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// FormatOutput labels captured streams for the payload. Stderr wins when both
// are present.
func FormatOutput(stdout, stderr string) string {
	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	switch {
	case stderr != "":
		return "stderr:\n" + stderr
	case stdout != "":
		return "stdout:\n" + stdout
	default:
		return "stdout: (empty)\nstderr: (empty)"
	}
}

// Split groups entries into batches of at most size entries, numbered from 1.
// Content is rendered for every batch.
func Split(entries []models.BatchEntry, size int) []models.OracleBatch {
	if size <= 0 {
		size = len(entries)
	}
	var batches []models.OracleBatch
	for i := 0; i < len(entries); i += size {
		end := i + size
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]
		batches = append(batches, models.OracleBatch{
			Number:  len(batches) + 1,
			Entries: chunk,
			Content: RenderBatch(chunk),
		})
	}
	return batches
}
