// Package baseline promotes the current raw-output tree to the accepted baseline.
package baseline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrison/rxharness/internal/filelock"
)

// ErrNoRawOutput indicates promotion was requested before any run produced output.
var ErrNoRawOutput = errors.New("raw output directory not found")

// Promote replaces the baseline tree wholesale with a copy of the raw tree.
// The copy is staged next to the baseline and swapped in under the baseline's
// lock. A failed copy leaves the old baseline untouched.
func Promote(rawDir, baselineDir string) error {
	info, err := os.Stat(rawDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s (run the tests at least once before promoting)", ErrNoRawOutput, rawDir)
	}

	baselineDir = filepath.Clean(baselineDir)
	parent := filepath.Dir(baselineDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create baseline parent: %w", err)
	}

	return filelock.WithLock(baselineDir, func() error {
		staging, err := os.MkdirTemp(parent, "."+filepath.Base(baselineDir)+".staging-*")
		if err != nil {
			return fmt.Errorf("create staging dir: %w", err)
		}
		defer os.RemoveAll(staging)

		staged := filepath.Join(staging, "tree")
		if err := os.CopyFS(staged, os.DirFS(rawDir)); err != nil {
			return fmt.Errorf("copy %s: %w", rawDir, err)
		}
		if err := os.RemoveAll(baselineDir); err != nil {
			return fmt.Errorf("remove old baseline: %w", err)
		}
		if err := os.Rename(staged, baselineDir); err != nil {
			return fmt.Errorf("install baseline: %w", err)
		}
		return nil
	})
}

// Exists reports whether a baseline tree is present.
func Exists(baselineDir string) bool {
	info, err := os.Stat(baselineDir)
	return err == nil && info.IsDir()
}

// Files lists the slash-separated relative paths of every file in dir, sorted.
func Files(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}
