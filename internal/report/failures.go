package report

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/rxharness/internal/filelock"
	"github.com/harrison/rxharness/internal/models"
)

// AllPassedHeader is the whole failure report when nothing failed.
const AllPassedHeader = "# Analysis Report: All Processed Tests Passed!\n"

// Failure is one failing case with the evidence shown in the report.
type Failure struct {
	ID     string
	Reason string
	Source string
	Output string
}

// VerdictFailures pairs every incorrect verdict with its batch entry.
func VerdictFailures(entries []models.BatchEntry, verdicts []models.Verdict) []Failure {
	byID := make(map[string]models.BatchEntry, len(entries))
	for _, e := range entries {
		byID[e.CaseID] = e
	}
	var failures []Failure
	for _, v := range verdicts {
		if v.Correct {
			continue
		}
		e := byID[v.CaseID]
		failures = append(failures, Failure{ID: v.CaseID, Reason: v.Reason, Source: e.Source, Output: e.Output})
	}
	return failures
}

// FailureIDs returns the sorted ids of failures.
func FailureIDs(failures []Failure) []string {
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.ID)
	}
	return sortedUnique(ids)
}

// RenderFailureReport renders the markdown failure report for set, sorted by id.
func RenderFailureReport(set string, failures []Failure) string {
	if len(failures) == 0 {
		return AllPassedHeader
	}
	sorted := append([]Failure(nil), failures...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Analysis Failure Report for Stage: %s\nFound %d failure(s).\n\n", set, len(sorted))
	for _, f := range sorted {
		fmt.Fprintf(&sb, "## FAILED: %s\n\n", f.ID)
		fmt.Fprintf(&sb, "### Reason\n%s\n\n", f.Reason)
		fmt.Fprintf(&sb, "### Source Code\n```rust\n%s\n```\n\n", f.Source)
		fmt.Fprintf(&sb, "### Compiler Output\n```\n%s\n```\n\n---\n\n", f.Output)
	}
	return sb.String()
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown report to a standalone HTML page.
func RenderHTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := htmlRenderer.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</title>\n</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

// WriteFile writes content atomically under the file's lock.
func WriteFile(path, content string) error {
	if err := filelock.LockAndWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteBatchFiles writes every batch payload to <dir>/report_batch_<n>.txt.
func WriteBatchFiles(dir string, batches []models.OracleBatch) error {
	for _, b := range batches {
		path := filepath.Join(dir, fmt.Sprintf("report_batch_%d.txt", b.Number))
		if err := WriteFile(path, b.Content); err != nil {
			return err
		}
	}
	return nil
}
