package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrison/rxharness/internal/models"
)

// Summarize counts results and collects the failures sorted by id.
func Summarize(results []models.CaseResult, elapsed time.Duration) models.RunSummary {
	s := models.RunSummary{Total: len(results), Duration: elapsed}
	for _, r := range results {
		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
			s.Failures = append(s.Failures, r)
		}
		switch r.Baseline {
		case models.BaselineNew:
			s.New++
		case models.BaselineRegression:
			s.Regressions++
		}
	}
	sort.SliceStable(s.Failures, func(i, j int) bool {
		return s.Failures[i].Case.ID < s.Failures[j].Case.ID
	})
	return s
}

// RenderSummary renders the summary file:
//
//	Total: N, Passed: P, Failed: F
//
//	Failures:
//	- <rel>: <reason>
//
// or "All cases succeeded." when nothing failed.
func RenderSummary(s models.RunSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total: %d, Passed: %d, Failed: %d\n", s.Total, s.Passed, s.Failed)
	if len(s.Failures) == 0 {
		sb.WriteString("All cases succeeded.\n")
		return sb.String()
	}
	sb.WriteString("\nFailures:\n")
	for _, f := range s.Failures {
		fmt.Fprintf(&sb, "- %s: %s\n", caseLabel(f.Case), f.Reason)
	}
	return sb.String()
}

// RenderVerdictSummary renders the inline-expectation summary file listing
// every mismatch with its expected token and actual exit status.
func RenderVerdictSummary(results []models.CaseResult) string {
	s := Summarize(results, 0)
	var sb strings.Builder
	if len(s.Failures) == 0 {
		fmt.Fprintf(&sb, "No verdict mismatches detected. (0/%d)\n", s.Total)
		return sb.String()
	}

	fmt.Fprintf(&sb, "%d verdict mismatch(s) out of %d cases:\n", len(s.Failures), s.Total)
	for _, f := range s.Failures {
		exp := f.Case.Expectation
		sb.WriteString(caseLabel(f.Case) + "\n")
		fmt.Fprintf(&sb, "  source: %s\n", f.Case.SourcePath)
		fmt.Fprintf(&sb, "  expected: %s (%s)\n", exp.Token, successLabel(exp.ExpectSuccess))
		if last, ok := f.LastStage(); ok {
			fmt.Fprintf(&sb, "  actual: exit %d (%s)\n", last.ExitCode, successLabel(last.ExitCode == 0))
			fmt.Fprintf(&sb, "  last line: %s\n", lastOutputLine(last))
		} else {
			fmt.Fprintf(&sb, "  actual: %s\n", f.Reason)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// ConsoleSummary is the one-line tally printed at the end of a run.
func ConsoleSummary(s models.RunSummary) string {
	line := fmt.Sprintf("Total: %d, Passed: %d, Failed: %d", s.Total, s.Passed, s.Failed)
	if s.New > 0 || s.Regressions > 0 {
		line += fmt.Sprintf(", New: %d, Regressions: %d", s.New, s.Regressions)
	}
	return line
}

func caseLabel(tc models.TestCase) string {
	if tc.RelPath != "" {
		return tc.RelPath
	}
	return tc.ID
}

func successLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func lastOutputLine(st models.StageResult) string {
	text := st.Stdout
	if st.Stderr != "" {
		if text != "" {
			text += "\n"
		}
		text += st.Stderr
	}
	lines := strings.Split(strings.TrimRight(text, " \t\r\n"), "\n")
	if last := lines[len(lines)-1]; last != "" {
		return last
	}
	return "<no output>"
}
