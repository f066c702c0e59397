package models

import (
	"path"
	"path/filepath"
)

// ExpectationKind identifies how a test case declares its correct behavior.
type ExpectationKind int

const (
	// ExpectNone means the case carries no expectation and is judged externally
	// (baseline comparison or a remote oracle).
	ExpectNone ExpectationKind = iota
	// ExpectInline means the source carries a "Verdict: <token>" annotation.
	ExpectInline
	// ExpectFixture means the case is paired with .in/.out fixture files.
	ExpectFixture
)

// String returns the string representation of ExpectationKind.
func (k ExpectationKind) String() string {
	switch k {
	case ExpectNone:
		return "none"
	case ExpectInline:
		return "inline"
	case ExpectFixture:
		return "fixture"
	default:
		return "unknown"
	}
}

// Expectation is the declared outcome for a test case.
type Expectation struct {
	Kind          ExpectationKind
	Token         string // Raw annotation token as written, e.g. "Success"
	ExpectSuccess bool   // Inline only: whether the toolchain should accept the source
	InputPath     string // Fixture only: runtime input (<name>.in)
	ExpectedPath  string // Fixture only: expected output (<name>.out)
}

// TestCase is one unit of test input plus its expectation. It is immutable once discovered.
type TestCase struct {
	ID          string // Slash-separated path relative to the discovery root, without extension
	Name        string // File stem, e.g. "loop1"
	SourcePath  string // Absolute path of the .rx source
	RelPath     string // Slash-separated path relative to the discovery root, with extension
	Expectation Expectation
}

// Dir returns the directory holding the case source and fixtures.
func (c TestCase) Dir() string {
	return filepath.Dir(c.SourcePath)
}

// RelDir returns the case directory relative to the discovery root ("." for top-level cases).
func (c TestCase) RelDir() string {
	return path.Dir(c.RelPath)
}

// ArtifactPath joins root with the case's relative path and swaps the extension.
// ArtifactPath("out", ".log") for "basic/loop1.rx" returns "out/basic/loop1.log".
func (c TestCase) ArtifactPath(root, ext string) string {
	return filepath.Join(root, filepath.FromSlash(c.ID)+ext)
}

// MatchesName reports whether ref names this case either by id or by stem.
// Failure lists written by older runs only carry stems.
func (c TestCase) MatchesName(ref string) bool {
	return ref == c.ID || ref == c.Name
}
