package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/rxharness/internal/models"
)

func TestRenderBatch(t *testing.T) {
	entries := []models.BatchEntry{
		{CaseID: "a", Source: "fn main() {}", Output: "stdout: (empty)\nstderr: (empty)"},
		{CaseID: "b", Source: "x", Output: "stderr:\nerror"},
	}
	want := "====== TEST: a ======\n--- SOURCE ---\nfn main() {}\n--- OUTPUT ---\nstdout: (empty)\nstderr: (empty)\n\n" +
		"====== TEST: b ======\n--- SOURCE ---\nx\n--- OUTPUT ---\nstderr:\nerror\n\n"
	assert.Equal(t, want, RenderBatch(entries))
}

func TestFormatOutput(t *testing.T) {
	assert.Equal(t, "stderr:\nbad", FormatOutput("ignored", "bad\n"))
	assert.Equal(t, "stdout:\nok", FormatOutput(" ok \n", " "))
	assert.Equal(t, "stdout: (empty)\nstderr: (empty)", FormatOutput("", ""))
}

func TestSplit(t *testing.T) {
	entries := make([]models.BatchEntry, 0, 23)
	for i := 0; i < 23; i++ {
		entries = append(entries, models.BatchEntry{CaseID: string(rune('a' + i))})
	}

	batches := Split(entries, 10)
	require.Len(t, batches, 3)
	assert.Equal(t, 1, batches[0].Number)
	assert.Equal(t, 3, batches[2].Number)
	assert.Len(t, batches[0].Entries, 10)
	assert.Len(t, batches[2].Entries, 3)
	assert.Equal(t, RenderBatch(batches[1].Entries), batches[1].Content)

	assert.Empty(t, Split(nil, 10))
}
