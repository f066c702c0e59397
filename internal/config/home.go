package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides project root detection.
const HomeEnv = "RXHARNESS_HOME"

// FindProjectRoot returns the directory whose relative paths the config refers to.
// Priority order:
//  1. RXHARNESS_HOME environment variable (if set)
//  2. The nearest ancestor of start containing a .rxharness directory
//  3. start itself
func FindProjectRoot(start string) (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Abs(home)
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	for current := abs; ; {
		if info, err := os.Stat(filepath.Join(current, DirName)); err == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return abs, nil
}

// ResolvePaths rewrites every relative path in the config against root.
// Tool entries without a separator are left alone so PATH lookup still applies.
func (c *Config) ResolvePaths(root string) {
	for _, p := range []*string{
		&c.LogDir, &c.TestRoot, &c.OutputRoot, &c.BaselineDir, &c.RawOutputDir,
		&c.RegressionLog, &c.Tools.Builtin, &c.Oracle.SystemPromptFile,
		&c.Oracle.ReportDir, &c.Oracle.LogDir, &c.Oracle.FailLog,
		&c.Oracle.ReportFile, &c.Oracle.HTMLReport, &c.History.DBPath,
	} {
		*p = resolve(root, *p)
	}
	for _, p := range []*string{
		&c.Tools.Compiler, &c.Tools.Semantic, &c.Tools.IRPipeline, &c.Tools.Clang, &c.Tools.Reimu,
	} {
		if filepath.Base(*p) != *p {
			*p = resolve(root, *p)
		}
	}
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(root, p)
}
