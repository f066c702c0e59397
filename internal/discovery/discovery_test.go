package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/rxharness/internal/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func ids(cases []models.TestCase) []string {
	out := make([]string, 0, len(cases))
	for _, c := range cases {
		out = append(out, c.ID)
	}
	return out
}

func TestDiscoverOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b/two.rx", "")
	writeFile(t, root, "a/one.rx", "")
	writeFile(t, root, "a/b.rx", "")
	writeFile(t, root, "z.rx", "")
	writeFile(t, root, "notes.txt", "")
	writeFile(t, root, "a/one.in", "")

	cases, err := Discover(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "a/one", "b/two", "z"}, ids(cases))

	again, err := Discover(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, cases, again)

	assert.Equal(t, "one", cases[1].Name)
	assert.Equal(t, "a/one.rx", cases[1].RelPath)
	assert.Equal(t, filepath.Join(root, "a", "one.rx"), cases[1].SourcePath)
	assert.Equal(t, models.ExpectNone, cases[1].Expectation.Kind)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRootNotFound))
}

func TestDiscoverFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "loops/loop1.rx", "")
	writeFile(t, root, "loops/loop2.rx", "")
	writeFile(t, root, "arrays/array1.rx", "")
	writeFile(t, root, "arrays/deep/array2.rx", "")

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"regex filter", Options{Filter: regexp.MustCompile(`loop`)}, []string{"loops/loop1", "loops/loop2"}},
		{"include glob", Options{Include: []string{"arrays/**/*.rx"}}, []string{"arrays/array1", "arrays/deep/array2"}},
		{"ids by id and stem", Options{IDs: []string{"loops/loop2", "array2", "unknown"}}, []string{"arrays/deep/array2", "loops/loop2"}},
		{"empty id list selects nothing", Options{IDs: []string{}}, []string{}},
		{"combined", Options{Filter: regexp.MustCompile(`1`), Include: []string{"loops/*"}}, []string{"loops/loop1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases, err := Discover(root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(cases))
		})
	}
}

func TestDiscoverInvalidInclude(t *testing.T) {
	_, err := Discover(t.TempDir(), Options{Include: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestDiscoverInline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.rx", "// comment\n  VERDICT: Success\nfn main() {}\n")
	writeFile(t, root, "bad.rx", "/*\nverdict: Fail\nverdict: pass\n*/\n")

	cases, err := Discover(root, Options{Mode: ModeInline})
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "bad", cases[0].ID)
	assert.Equal(t, models.ExpectInline, cases[0].Expectation.Kind)
	assert.Equal(t, "Fail", cases[0].Expectation.Token)
	assert.False(t, cases[0].Expectation.ExpectSuccess)

	assert.Equal(t, "Success", cases[1].Expectation.Token)
	assert.True(t, cases[1].Expectation.ExpectSuccess)
}

func TestDiscoverInlineErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"missing annotation", "fn main() {}\n", "verdict annotation not found"},
		{"unknown token", "/*\nVerdict: maybe\n*/\n", `unsupported verdict "maybe"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "good.rx", "Verdict: ok\n")
			writeFile(t, root, "x/case.rx", tt.content)

			_, err := Discover(root, Options{Mode: ModeInline})
			require.Error(t, err)

			var de *DiscoveryError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, filepath.Join(root, "x", "case.rx"), de.Path)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, IsDiscoveryError(err))
		})
	}
}

func TestDiscoverFixture(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "set/fib.rx", "")

	cases, err := Discover(root, Options{Mode: ModeFixture})
	require.NoError(t, err)
	require.Len(t, cases, 1)

	exp := cases[0].Expectation
	assert.Equal(t, models.ExpectFixture, exp.Kind)
	assert.Equal(t, filepath.Join(root, "set", "fib.in"), exp.InputPath)
	assert.Equal(t, filepath.Join(root, "set", "fib.out"), exp.ExpectedPath)
}

func TestParseToken(t *testing.T) {
	for _, tok := range []string{"pass", "Success", "OK"} {
		v, ok := ParseToken(tok)
		assert.True(t, ok, tok)
		assert.True(t, v, tok)
	}
	for _, tok := range []string{"fail", "FAILURE", "Error"} {
		v, ok := ParseToken(tok)
		assert.True(t, ok, tok)
		assert.False(t, v, tok)
	}
	_, ok := ParseToken("skip")
	assert.False(t, ok)
}

func TestDiscoverSubdir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "semantic-1/b.rx", "")
	writeFile(t, root, "semantic-1/nested/a.rx", "")
	writeFile(t, root, "semantic-2/c.rx", "")

	cases, err := Discover(root, Options{Subdir: "semantic-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"semantic-1/b", "semantic-1/nested/a"}, ids(cases))
	assert.Equal(t, filepath.Join(root, "semantic-1", "b.rx"), cases[0].SourcePath)

	_, err = Discover(root, Options{Subdir: "semantic-9"})
	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.Contains(t, err.Error(), "semantic-9")
}
