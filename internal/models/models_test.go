package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectationKindString(t *testing.T) {
	tests := []struct {
		kind ExpectationKind
		want string
	}{
		{ExpectNone, "none"},
		{ExpectInline, "inline"},
		{ExpectFixture, "fixture"},
		{ExpectationKind(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestTestCasePaths(t *testing.T) {
	tc := TestCase{
		ID:         "basic/loop1",
		Name:       "loop1",
		SourcePath: filepath.Join("/cases", "basic", "loop1.rx"),
		RelPath:    "basic/loop1.rx",
	}

	assert.Equal(t, filepath.Join("/cases", "basic"), tc.Dir())
	assert.Equal(t, "basic", tc.RelDir())
	assert.Equal(t, filepath.Join("out", "basic", "loop1.log"), tc.ArtifactPath("out", ".log"))

	top := TestCase{ID: "main", RelPath: "main.rx"}
	assert.Equal(t, ".", top.RelDir())
}

func TestTestCaseMatchesName(t *testing.T) {
	tc := TestCase{ID: "stage1/loop1", Name: "loop1"}
	assert.True(t, tc.MatchesName("stage1/loop1"))
	assert.True(t, tc.MatchesName("loop1"))
	assert.False(t, tc.MatchesName("stage2/loop1"))
	assert.False(t, tc.MatchesName(""))
}

func TestCaseResultLastStage(t *testing.T) {
	var empty CaseResult
	_, ok := empty.LastStage()
	assert.False(t, ok)
	assert.False(t, empty.Passed())

	res := CaseResult{
		Status: CasePass,
		Stages: []StageResult{
			{StageName: "ir_pipeline", Status: StageSuccess},
			{StageName: "clang", Status: StageNonZero, ExitCode: 1},
		},
	}
	last, ok := res.LastStage()
	assert.True(t, ok)
	assert.Equal(t, "clang", last.StageName)
	assert.False(t, last.Succeeded())
	assert.True(t, res.Stages[0].Succeeded())
	assert.True(t, res.Passed())
}

func TestOracleBatchIDs(t *testing.T) {
	b := OracleBatch{Number: 1, Entries: []BatchEntry{{CaseID: "b"}, {CaseID: "a"}}}
	assert.Equal(t, []string{"b", "a"}, b.IDs())
	assert.Empty(t, OracleBatch{}.IDs())
}
