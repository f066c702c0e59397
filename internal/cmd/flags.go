package cmd

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/config"
)

// changedString returns the flag value when it was set on the command line.
func changedString(cmd *cobra.Command, name string) *string {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// changedPath is changedString made absolute against the working directory,
// so flag paths are not later resolved against the project root.
func changedPath(cmd *cobra.Command, name string) *string {
	v := changedString(cmd, name)
	if v == nil || *v == "" {
		return v
	}
	if abs, err := filepath.Abs(*v); err == nil {
		*v = abs
	}
	return v
}

// changedTool is changedPath for tool flags: bare names stay PATH lookups.
func changedTool(cmd *cobra.Command, name string) *string {
	v := changedString(cmd, name)
	if v == nil || filepath.Base(*v) == *v {
		return v
	}
	return changedPath(cmd, name)
}

func changedInt(cmd *cobra.Command, name string) *int {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func changedDuration(cmd *cobra.Command, name string) *time.Duration {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, _ := cmd.Flags().GetDuration(name)
	return &v
}

// flagOverrides collects every config-backed flag the command defines.
func flagOverrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		LogLevel:              changedString(cmd, "log-level"),
		LogDir:                changedPath(cmd, "log-dir"),
		TestRoot:              changedPath(cmd, "test-root"),
		OutputRoot:            changedPath(cmd, "output-root"),
		CaseWorkers:           changedInt(cmd, "case-workers"),
		PreserveIntermediates: changedBool(cmd, "preserve-intermediates"),
		IRPipeline:            changedTool(cmd, "ir-pipeline"),
		Clang:                 changedTool(cmd, "clang"),
		Reimu:                 changedTool(cmd, "reimu"),
		Target:                changedString(cmd, "target"),
		Builtin:               changedPath(cmd, "builtin"),
		Compiler:              changedTool(cmd, "compiler"),
		Semantic:              changedTool(cmd, "semantic"),
		IRTimeout:             changedDuration(cmd, "ir-timeout"),
		ClangTimeout:          changedDuration(cmd, "clang-timeout"),
		ReimuTimeout:          changedDuration(cmd, "reimu-timeout"),
		BuiltinTimeout:        changedDuration(cmd, "builtin-timeout"),
		CompileTimeout:        changedDuration(cmd, "compile-timeout"),
		OracleWorkers:         changedInt(cmd, "workers"),
		OracleBatchSize:       changedInt(cmd, "batch-size"),
		RequestDelay:          changedDuration(cmd, "request-delay"),
		Transport:             changedString(cmd, "transport"),
		HTMLReport:            changedPath(cmd, "html-report"),
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && o.LogLevel == nil {
		debug := "debug"
		o.LogLevel = &debug
	}
	return o
}

// addSelectionFlags registers --filter and --include.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("filter", "", "Only run cases whose relative path matches this regex")
	cmd.Flags().StringSlice("include", nil, "Only run cases matching these glob patterns (repeatable, ** allowed)")
}

// selection reads --filter and --include.
func selection(cmd *cobra.Command) (*regexp.Regexp, []string, error) {
	var filter *regexp.Regexp
	if expr, _ := cmd.Flags().GetString("filter"); expr != "" {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid regex for --filter: %w", err)
		}
		filter = re
	}
	include, _ := cmd.Flags().GetStringSlice("include")
	return filter, include, nil
}
