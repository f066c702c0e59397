// Package discovery enumerates test cases under a test root and extracts
// their declared expectations.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/harrison/rxharness/internal/models"
)

// SourceExt is the extension of test case sources.
const SourceExt = ".rx"

// Mode selects which expectation is extracted for each case.
type Mode int

const (
	// ModeNone attaches no expectation; cases are judged externally.
	ModeNone Mode = iota
	// ModeInline requires a "Verdict: <token>" annotation in every source.
	ModeInline
	// ModeFixture pairs every source with <name>.in and <name>.out.
	ModeFixture
)

// Options narrow and shape discovery.
type Options struct {
	// Filter keeps only cases whose slash-separated relative path matches.
	Filter *regexp.Regexp
	// Include keeps only cases whose relative path matches one of these doublestar patterns.
	Include []string
	// IDs restricts discovery to the named cases. Entries may be ids or stems.
	IDs []string
	// Mode selects expectation extraction.
	Mode Mode
	// Subdir limits the walk to root/Subdir while ids stay relative to root.
	Subdir string
}

// Discover walks root and returns the matching cases in lexicographic order of
// their relative paths. A missing root wraps ErrRootNotFound. A malformed inline
// annotation returns a *DiscoveryError naming the file.
func Discover(root string, opts Options) ([]models.TestCase, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	walkRoot := absRoot
	if opts.Subdir != "" {
		walkRoot = filepath.Join(absRoot, filepath.FromSlash(opts.Subdir))
	}
	info, err := os.Stat(walkRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, filepath.Join(root, opts.Subdir))
	}

	for _, pattern := range opts.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
	}

	var rels []string
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), SourceExt) {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(rels)

	wanted := make(map[string]struct{}, len(opts.IDs))
	for _, id := range opts.IDs {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = struct{}{}
		}
	}

	cases := make([]models.TestCase, 0, len(rels))
	for _, rel := range rels {
		if !selected(rel, opts, wanted) {
			continue
		}
		tc, err := load(absRoot, rel, opts.Mode)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func selected(rel string, opts Options, wanted map[string]struct{}) bool {
	if opts.Filter != nil && !opts.Filter.MatchString(rel) {
		return false
	}
	if len(opts.Include) > 0 {
		matched := false
		for _, pattern := range opts.Include {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if opts.IDs != nil {
		id := strings.TrimSuffix(rel, SourceExt)
		_, byID := wanted[id]
		_, byStem := wanted[path.Base(id)]
		if !byID && !byStem {
			return false
		}
	}
	return true
}

func load(absRoot, rel string, mode Mode) (models.TestCase, error) {
	id := strings.TrimSuffix(rel, SourceExt)
	sourcePath := filepath.Join(absRoot, filepath.FromSlash(rel))
	tc := models.TestCase{
		ID:         id,
		Name:       path.Base(id),
		SourcePath: sourcePath,
		RelPath:    rel,
	}

	switch mode {
	case ModeInline:
		src, err := os.ReadFile(sourcePath)
		if err != nil {
			return tc, &DiscoveryError{Path: sourcePath, Message: "read source", Err: err}
		}
		token, found := findAnnotation(src)
		if !found {
			return tc, &DiscoveryError{Path: sourcePath, Message: "verdict annotation not found"}
		}
		expectSuccess, ok := ParseToken(token)
		if !ok {
			return tc, &DiscoveryError{Path: sourcePath, Message: fmt.Sprintf("unsupported verdict %q", token)}
		}
		tc.Expectation = models.Expectation{
			Kind:          models.ExpectInline,
			Token:         token,
			ExpectSuccess: expectSuccess,
		}
	case ModeFixture:
		base := strings.TrimSuffix(sourcePath, SourceExt)
		tc.Expectation = models.Expectation{
			Kind:         models.ExpectFixture,
			InputPath:    base + ".in",
			ExpectedPath: base + ".out",
		}
	}
	return tc, nil
}

// IsDiscoveryError reports whether err carries a *DiscoveryError.
func IsDiscoveryError(err error) bool {
	var de *DiscoveryError
	return errors.As(err, &de)
}
