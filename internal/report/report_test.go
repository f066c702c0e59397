package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/rxharness/internal/models"
)

func result(id string, status models.CaseStatus, baseline models.BaselineStatus, reason string) models.CaseResult {
	return models.CaseResult{
		Case:     models.TestCase{ID: id, Name: filepath.Base(id), RelPath: id + ".rx"},
		Status:   status,
		Baseline: baseline,
		Reason:   reason,
	}
}

func TestBuildRegressionSet(t *testing.T) {
	results := []models.CaseResult{
		result("z/changed", models.CaseFail, models.BaselineRegression, "differs"),
		result("a/new", models.CasePass, models.BaselineNew, ""),
		result("a/same", models.CasePass, models.BaselineMatch, ""),
		result("m/timeout", models.CaseTimeout, models.BaselineUnchecked, "compiler timeout"),
		result("b/changed", models.CaseFail, models.BaselineRegression, "differs"),
	}
	assert.Equal(t, []string{"b/changed", "m/timeout", "z/changed"}, BuildRegressionSet(results))
}

func TestBuildRegressionSetNeverIncludesNew(t *testing.T) {
	var results []models.CaseResult
	for _, id := range []string{"c", "b", "a"} {
		results = append(results, result(id, models.CasePass, models.BaselineNew, ""))
	}
	results = append(results,
		result("slow", models.CaseTimeout, models.BaselineNew, "compile timeout (>1s): <no output>"),
		result("nostart", models.CaseFail, models.BaselineNew, "compile exit -1: <no output>"),
	)
	assert.Empty(t, BuildRegressionSet(results))
}

func TestIDListRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regression_failures.log")

	ids, err := ReadIDList(path)
	require.NoError(t, err)
	assert.Nil(t, ids)

	require.NoError(t, WriteIDList(path, []string{"b", "a", "b"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))

	ids, err = ReadIDList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRenderSummary(t *testing.T) {
	results := []models.CaseResult{
		result("loops/loop2", models.CaseFail, "", "output mismatch"),
		result("arrays/a1", models.CasePass, "", ""),
		result("arrays/a0", models.CaseMissingArtifacts, "", "missing .in or .out file"),
	}
	s := Summarize(results, time.Second)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 2, s.Failed)

	want := "Total: 3, Passed: 1, Failed: 2\n" +
		"\n" +
		"Failures:\n" +
		"- arrays/a0.rx: missing .in or .out file\n" +
		"- loops/loop2.rx: output mismatch\n"
	assert.Equal(t, want, RenderSummary(s))

	allPass := Summarize([]models.CaseResult{result("a", models.CasePass, "", "")}, 0)
	assert.Equal(t, "Total: 1, Passed: 1, Failed: 0\nAll cases succeeded.\n", RenderSummary(allPass))
}

func TestRenderSummaryDeterministic(t *testing.T) {
	results := []models.CaseResult{
		result("b", models.CaseFail, "", "x"),
		result("a", models.CaseTimeout, "", "y"),
	}
	first := RenderSummary(Summarize(results, time.Second))
	second := RenderSummary(Summarize(results, 3*time.Second))
	assert.Equal(t, first, second)

	failures := []Failure{{ID: "b", Reason: "r"}, {ID: "a", Reason: "s"}}
	assert.Equal(t, RenderFailureReport("set", failures), RenderFailureReport("set", failures))
}

func TestRenderVerdictSummary(t *testing.T) {
	mismatch := models.CaseResult{
		Case: models.TestCase{
			ID: "bad", RelPath: "bad.rx", SourcePath: "/t/src/bad.rx",
			Expectation: models.Expectation{Kind: models.ExpectInline, Token: "Success", ExpectSuccess: true},
		},
		Status: models.CaseFail,
		Stages: []models.StageResult{{StageName: "semantic", Status: models.StageNonZero, ExitCode: 1, Stdout: "ok\n", Stderr: "error: E0308\n"}},
		Reason: "verdict mismatch (expected Success, exit 1)",
	}
	ok := result("good", models.CasePass, "", "")

	want := "1 verdict mismatch(s) out of 2 cases:\n" +
		"bad.rx\n" +
		"  source: /t/src/bad.rx\n" +
		"  expected: Success (success)\n" +
		"  actual: exit 1 (failure)\n" +
		"  last line: error: E0308\n"
	assert.Equal(t, want, RenderVerdictSummary([]models.CaseResult{ok, mismatch}))
	assert.Equal(t, "No verdict mismatches detected. (0/1)\n", RenderVerdictSummary([]models.CaseResult{ok}))
}

func TestConsoleSummary(t *testing.T) {
	s := models.RunSummary{Total: 5, Passed: 4, Failed: 1}
	assert.Equal(t, "Total: 5, Passed: 4, Failed: 1", ConsoleSummary(s))
	s.New = 2
	assert.Equal(t, "Total: 5, Passed: 4, Failed: 1, New: 2, Regressions: 0", ConsoleSummary(s))
}

func TestRenderFailureReport(t *testing.T) {
	assert.Equal(t, AllPassedHeader, RenderFailureReport("semantic-1", nil))

	failures := []Failure{
		{ID: "z", Reason: "wrong", Source: "fn z() {}", Output: "stdout: (empty)\nstderr: (empty)"},
		{ID: "a", Reason: "no verdict", Source: "fn a() {}", Output: "stderr:\nerr"},
	}
	got := RenderFailureReport("semantic-1", failures)

	assert.True(t, strings.HasPrefix(got, "# Analysis Failure Report for Stage: semantic-1\nFound 2 failure(s).\n\n## FAILED: a\n"))
	assert.Less(t, strings.Index(got, "## FAILED: a"), strings.Index(got, "## FAILED: z"))
	assert.Contains(t, got, "### Source Code\n```rust\nfn a() {}\n```\n")
	assert.Contains(t, got, "### Compiler Output\n```\nstderr:\nerr\n```\n\n---\n\n")
	assert.Equal(t, "z", failures[0].ID, "input order must not change")
}

func TestVerdictFailures(t *testing.T) {
	entries := []models.BatchEntry{{CaseID: "a", Source: "sa", Output: "oa"}, {CaseID: "b", Source: "sb", Output: "ob"}}
	verdicts := []models.Verdict{{CaseID: "a", Correct: true}, {CaseID: "b", Reason: "bad"}}

	got := VerdictFailures(entries, verdicts)
	require.Len(t, got, 1)
	assert.Equal(t, Failure{ID: "b", Reason: "bad", Source: "sb", Output: "ob"}, got[0])
	assert.Equal(t, []string{"b"}, FailureIDs(got))
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("Report <1>", RenderFailureReport("s", []Failure{{ID: "a", Reason: "r", Source: "x", Output: "y"}}))
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Report &lt;1&gt;</title>")
	assert.Contains(t, out, "<h2>FAILED: a</h2>")
	assert.Contains(t, out, `<code class="language-rust">`)
}

func TestWriteBatchFiles(t *testing.T) {
	dir := t.TempDir()
	batches := []models.OracleBatch{{Number: 1, Content: "one"}, {Number: 2, Content: "two"}}
	require.NoError(t, WriteBatchFiles(dir, batches))

	data, err := os.ReadFile(filepath.Join(dir, "report_batch_2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
