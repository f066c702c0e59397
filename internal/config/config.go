package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-project directory holding config.yaml, logs and history.
const DirName = ".rxharness"

// Oracle transports
const (
	TransportHTTP    = "http"
	TransportCommand = "command"
)

// ToolsConfig names the toolchain binaries under test.
type ToolsConfig struct {
	// Compiler is the full compiler driven by regress and judge
	Compiler string `yaml:"compiler"`

	// Semantic is the front-end binary driven by verdict mode
	Semantic string `yaml:"semantic"`

	// IRPipeline emits LLVM IR for a source file
	IRPipeline string `yaml:"ir_pipeline"`

	// Clang is the assembler; empty means auto-detect
	Clang string `yaml:"clang"`

	// Reimu is the RISC-V emulator
	Reimu string `yaml:"reimu"`

	// Target is the clang target triple
	Target string `yaml:"target"`

	// Builtin is the C prelude compiled once per run
	Builtin string `yaml:"builtin"`
}

// TimeoutsConfig holds per-stage wall clock limits.
type TimeoutsConfig struct {
	IR      time.Duration `yaml:"ir"`
	Clang   time.Duration `yaml:"clang"`
	Reimu   time.Duration `yaml:"reimu"`
	Builtin time.Duration `yaml:"builtin"`
	Compile time.Duration `yaml:"compile"`
}

// OracleConfig configures the remote verdict oracle used by judge.
type OracleConfig struct {
	// Transport is TransportHTTP or TransportCommand
	Transport string `yaml:"transport"`

	// Endpoint is the OpenAI-compatible base URL
	Endpoint string `yaml:"endpoint"`

	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string `yaml:"api_key_env"`

	// Command is the CLI invoked by the command transport
	Command string `yaml:"command"`

	// SystemPromptFile overrides the built-in system instruction when present
	SystemPromptFile string `yaml:"system_prompt_file"`

	BatchSize        int           `yaml:"batch_size"`
	MaxWorkers       int           `yaml:"max_workers"`
	RequestDelay     time.Duration `yaml:"request_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      float64       `yaml:"temperature"`
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait"`

	// ReportDir receives report_batch_<n>.txt files, one subdirectory per set
	ReportDir string `yaml:"report_dir"`

	// LogDir receives raw responses and transport errors; cleared per analysis
	LogDir string `yaml:"log_dir"`

	FailLog    string `yaml:"fail_log"`
	ReportFile string `yaml:"report_file"`

	// HTMLReport is optional; empty disables the HTML rendering
	HTMLReport string `yaml:"html_report"`
}

// HistoryConfig configures the sqlite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Config represents rxharness configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// TestRoot contains one directory per test set
	TestRoot string `yaml:"test_root"`

	// OutputRoot is the parent of per-set output directories
	OutputRoot string `yaml:"output_root"`

	BaselineDir   string `yaml:"baseline_dir"`
	RawOutputDir  string `yaml:"raw_output_dir"`
	RegressionLog string `yaml:"regression_log"`

	// CaseWorkers bounds concurrently executing cases
	CaseWorkers int `yaml:"case_workers"`

	// PreserveIntermediates copies stage artifacts next to the case outputs
	PreserveIntermediates bool `yaml:"preserve_intermediates"`

	Tools    ToolsConfig    `yaml:"tools"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Oracle   OracleConfig   `yaml:"oracle"`
	History  HistoryConfig  `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		LogDir:        filepath.Join(DirName, "logs"),
		TestRoot:      "RCompiler-Testcases",
		OutputRoot:    "test-output",
		BaselineDir:   filepath.Join("test-output", "baseline"),
		RawOutputDir:  filepath.Join("test-output", "raw"),
		RegressionLog: "regression_failures.log",
		CaseWorkers:   1,
		Tools: ToolsConfig{
			Compiler:   filepath.Join("build", "ninja-debug", "compiler"),
			Semantic:   filepath.Join("build", "ninja-debug", "cmd", "semantic_pipeline"),
			IRPipeline: filepath.Join("build", "ninja-debug", "cmd", "ir_pipeline"),
			Reimu:      "reimu",
			Target:     "riscv32-unknown-elf",
			Builtin:    filepath.Join("scripts", "builtin.c"),
		},
		Timeouts: TimeoutsConfig{
			IR:      30 * time.Second,
			Clang:   30 * time.Second,
			Reimu:   10 * time.Second,
			Builtin: 10 * time.Second,
			Compile: 30 * time.Second,
		},
		Oracle: OracleConfig{
			Transport:        TransportHTTP,
			Endpoint:         "https://open.bigmodel.cn/api/paas/v4",
			Model:            "glm-4.5",
			APIKeyEnv:        "ZHIPU_API_KEY",
			Command:          "claude",
			SystemPromptFile: filepath.Join("prompts", "parser_verifier.md"),
			BatchSize:        10,
			MaxWorkers:       4,
			RequestDelay:     200 * time.Millisecond,
			Timeout:          5 * time.Minute,
			MaxTokens:        8192,
			Temperature:      0.2,
			MaxRateLimitWait: 2 * time.Minute,
			ReportDir:        filepath.Join("test-output", "report"),
			LogDir:           filepath.Join("test-output", "ai-logs"),
			FailLog:          "ai_failures.log",
			ReportFile:       "ai_failure_report.md",
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(DirName, "history.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// Keys present in the file override the defaults; absent keys keep them.
// A missing file yields the defaults, a malformed one an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromDir loads configuration from .rxharness/config.yaml in dir.
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, "config.yaml"))
}

// Overrides carries CLI flag values; nil fields were not set on the command line.
type Overrides struct {
	LogLevel              *string
	LogDir                *string
	TestRoot              *string
	OutputRoot            *string
	CaseWorkers           *int
	PreserveIntermediates *bool
	IRPipeline            *string
	Clang                 *string
	Reimu                 *string
	Target                *string
	Builtin               *string
	Compiler              *string
	Semantic              *string
	IRTimeout             *time.Duration
	ClangTimeout          *time.Duration
	ReimuTimeout          *time.Duration
	BuiltinTimeout        *time.Duration
	CompileTimeout        *time.Duration
	OracleWorkers         *int
	OracleBatchSize       *int
	RequestDelay          *time.Duration
	Transport             *string
	HTMLReport            *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(o Overrides) {
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.LogDir, o.LogDir)
	setString(&c.TestRoot, o.TestRoot)
	setString(&c.OutputRoot, o.OutputRoot)
	if o.CaseWorkers != nil {
		c.CaseWorkers = *o.CaseWorkers
	}
	if o.PreserveIntermediates != nil {
		c.PreserveIntermediates = *o.PreserveIntermediates
	}

	setString(&c.Tools.IRPipeline, o.IRPipeline)
	setString(&c.Tools.Clang, o.Clang)
	setString(&c.Tools.Reimu, o.Reimu)
	setString(&c.Tools.Target, o.Target)
	setString(&c.Tools.Builtin, o.Builtin)
	setString(&c.Tools.Compiler, o.Compiler)
	setString(&c.Tools.Semantic, o.Semantic)

	setDuration(&c.Timeouts.IR, o.IRTimeout)
	setDuration(&c.Timeouts.Clang, o.ClangTimeout)
	setDuration(&c.Timeouts.Reimu, o.ReimuTimeout)
	setDuration(&c.Timeouts.Builtin, o.BuiltinTimeout)
	setDuration(&c.Timeouts.Compile, o.CompileTimeout)

	if o.OracleWorkers != nil {
		c.Oracle.MaxWorkers = *o.OracleWorkers
	}
	if o.OracleBatchSize != nil {
		c.Oracle.BatchSize = *o.OracleBatchSize
	}
	setDuration(&c.Oracle.RequestDelay, o.RequestDelay)
	setString(&c.Oracle.Transport, o.Transport)
	setString(&c.Oracle.HTMLReport, o.HTMLReport)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.TestRoot == "" {
		return fmt.Errorf("test_root cannot be empty")
	}
	if c.CaseWorkers < 1 {
		return fmt.Errorf("case_workers must be >= 1, got %d", c.CaseWorkers)
	}

	timeouts := map[string]time.Duration{
		"timeouts.ir":      c.Timeouts.IR,
		"timeouts.clang":   c.Timeouts.Clang,
		"timeouts.reimu":   c.Timeouts.Reimu,
		"timeouts.builtin": c.Timeouts.Builtin,
		"timeouts.compile": c.Timeouts.Compile,
	}
	for _, name := range []string{"timeouts.ir", "timeouts.clang", "timeouts.reimu", "timeouts.builtin", "timeouts.compile"} {
		if timeouts[name] <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", name, timeouts[name])
		}
	}

	o := c.Oracle
	switch o.Transport {
	case TransportHTTP, TransportCommand:
	default:
		return fmt.Errorf("invalid oracle.transport %q, must be one of: http, command", o.Transport)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("oracle.batch_size must be >= 1, got %d", o.BatchSize)
	}
	if o.MaxWorkers < 1 {
		return fmt.Errorf("oracle.max_workers must be >= 1, got %d", o.MaxWorkers)
	}
	if o.RequestDelay < 0 {
		return fmt.Errorf("oracle.request_delay must be >= 0, got %v", o.RequestDelay)
	}
	if o.MaxRateLimitWait < 0 {
		return fmt.Errorf("oracle.max_rate_limit_wait must be >= 0, got %v", o.MaxRateLimitWait)
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		return fmt.Errorf("oracle.temperature must be within [0, 2], got %v", o.Temperature)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
