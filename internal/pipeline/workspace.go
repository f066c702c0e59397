package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/harrison/rxharness/internal/models"
)

// File names inside a case work directory.
const (
	InputFile   = "test.in"
	IRFile      = "test.ll"
	AsmRawFile  = "test.s.source"
	AsmFile     = "test.s"
	ActualFile  = "test.out"
	BuiltinFile = "builtin.s"
)

// Template variable names.
const (
	VarSource   = "source"
	VarInput    = "input"
	VarExpected = "expected"
	VarWorkDir  = "workdir"
	VarTarget   = "target"
	VarIR       = "ir"
	VarAsm      = "asm"
	VarAsmRaw   = "asm_raw"
	VarActual   = "actual"
	VarBuiltin  = "builtin"
)

// intermediates maps preserved work-dir artifacts to their output extension.
var intermediates = []struct {
	Var string
	Ext string
}{
	{VarIR, ".ll"},
	{VarAsmRaw, ".s.source"},
	{VarAsm, ".s"},
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Workspace is the scratch directory of one case and its template variables.
type Workspace struct {
	Dir  string
	Case models.TestCase
	Vars map[string]string
}

// Var returns the value of a template variable, "" when unset.
func (w *Workspace) Var(name string) string {
	return w.Vars[name]
}

// Expand substitutes {name} placeholders. Unknown placeholders are left as is.
func (w *Workspace) Expand(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := w.Vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// ExpandAll expands every element of argv.
func (w *Workspace) ExpandAll(argv []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = w.Expand(a)
	}
	return out
}

// newWorkspace creates a fresh work directory for tc under root, copies the
// case input and the compiled builtin into it and binds the template variables.
func newWorkspace(root string, tc models.TestCase, extra map[string]string, builtin string) (*Workspace, error) {
	dir, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(tc.ID)))
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear work dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	vars := make(map[string]string, len(extra)+10)
	for k, v := range extra {
		vars[k] = v
	}
	vars[VarSource] = tc.SourcePath
	vars[VarWorkDir] = dir
	vars[VarIR] = filepath.Join(dir, IRFile)
	vars[VarAsmRaw] = filepath.Join(dir, AsmRawFile)
	vars[VarAsm] = filepath.Join(dir, AsmFile)
	vars[VarActual] = filepath.Join(dir, ActualFile)

	if tc.Expectation.Kind == models.ExpectFixture {
		input := filepath.Join(dir, InputFile)
		if err := copyFile(tc.Expectation.InputPath, input); err != nil {
			return nil, fmt.Errorf("copy input: %w", err)
		}
		vars[VarInput] = input
		vars[VarExpected] = tc.Expectation.ExpectedPath
	}
	if builtin != "" {
		dst := filepath.Join(dir, BuiltinFile)
		if err := copyFile(builtin, dst); err != nil {
			return nil, fmt.Errorf("copy builtin: %w", err)
		}
		vars[VarBuiltin] = dst
	}

	return &Workspace{Dir: dir, Case: tc, Vars: vars}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
