// Package report aggregates case results and verdicts into the regression
// set, summaries and failure reports. Every rendered file is a pure function
// of its input so identical runs produce identical bytes.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/harrison/rxharness/internal/filelock"
	"github.com/harrison/rxharness/internal/models"
)

// BuildRegressionSet returns the sorted ids whose current result differs from
// the baseline. Cases without a baseline are never included. A failed case
// that no judge classified against the baseline counts as differing.
func BuildRegressionSet(results []models.CaseResult) []string {
	var ids []string
	for _, r := range results {
		switch r.Baseline {
		case models.BaselineRegression:
			ids = append(ids, r.Case.ID)
		case models.BaselineUnchecked:
			if !r.Passed() {
				ids = append(ids, r.Case.ID)
			}
		}
	}
	return sortedUnique(ids)
}

// WriteIDList persists ids sorted, one per line.
func WriteIDList(path string, ids []string) error {
	if err := filelock.WriteLines(path, sortedUnique(ids)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadIDList reads a list written by WriteIDList. A missing file yields no ids.
func ReadIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, scanner.Err()
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
