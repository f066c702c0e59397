package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/normalize"
)

// ClangCandidates are tried in order when no clang is configured.
var ClangCandidates = []string{"clang-18", "clang-17", "clang-16", "clang-15", "clang"}

// ResolveTool returns the path of a tool. Names containing a path separator
// must exist on disk; bare names are looked up on PATH.
func ResolveTool(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty tool name", ErrToolNotFound)
	}
	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		info, err := os.Stat(name)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

// DetectClang resolves an explicit clang or the first available candidate.
func DetectClang(explicit string) (string, error) {
	if explicit != "" {
		return ResolveTool(explicit)
	}
	for _, candidate := range ClangCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no suitable clang executable found (tried %s)",
		ErrToolNotFound, strings.Join(ClangCandidates, ", "))
}

// CompileBuiltin compiles the runtime prelude once per run into workRoot and
// strips @plt markers from the result. It returns the path of builtin.s.
func CompileBuiltin(ctx context.Context, clang, target, source, workRoot string, timeout time.Duration) (string, error) {
	if !isFile(source) {
		return "", fmt.Errorf("builtin source not found: %s", source)
	}
	if err := os.MkdirAll(workRoot, 0755); err != nil {
		return "", fmt.Errorf("create work root: %w", err)
	}
	raw := filepath.Join(workRoot, BuiltinFile+".source")
	clean := filepath.Join(workRoot, BuiltinFile)

	inv := Invoke(ctx, []string{clang, "-S", "--target=" + target, "-O2", "-fno-builtin", source, "-o", raw}, workRoot, timeout)
	switch inv.Status {
	case models.StageTimeout:
		return "", fmt.Errorf("failed to compile builtin: timeout (>%s): %s", formatSeconds(timeout), lastLine(inv.Stdout, inv.Stderr))
	case models.StageNonZero:
		return "", fmt.Errorf("failed to compile builtin: exit %d: %s", inv.ExitCode, lastLine(inv.Stdout, inv.Stderr))
	}

	if err := normalize.ApplyFile(normalize.StripPLTName, raw, clean); err != nil {
		return "", err
	}
	return clean, nil
}
