// Package normalize canonicalizes tool output for lenient comparison and
// hosts the registry of textual fixups applied between pipeline stages.
package normalize

import (
	"strings"
)

// Lines splits text into lines, trims trailing whitespace from each line and
// drops lines that are blank after trimming. Leading indentation is kept.
// Lines(strings.Join(Lines(x), "\n")) == Lines(x) for every x.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t\r\v\f")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Text returns the normalized form of text joined back with newlines.
func Text(text string) string {
	return strings.Join(Lines(text), "\n")
}

// Equal reports whether a and b are identical after normalization.
func Equal(a, b string) bool {
	return EqualLines(Lines(a), Lines(b))
}

// EqualLines compares two already-normalized line sequences.
func EqualLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LastLine returns the last non-blank line of text, trimmed, or "" when there is none.
func LastLine(text string) string {
	lines := Lines(text)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
