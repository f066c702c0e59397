package models

import "time"

// StageStatus is the discriminant of a single external invocation.
type StageStatus string

// Stage status constants
const (
	StageSuccess StageStatus = "success" // Process exited with code 0
	StageNonZero StageStatus = "nonzero" // Process exited with a non-zero code or could not start
	StageTimeout StageStatus = "timeout" // Process exceeded its timeout and was killed
)

// Fixup rewrites an artifact produced by a stage before the next stage consumes it.
type Fixup struct {
	Hook string // Registered fixup name, e.g. "strip-plt"
	From string // Artifact template read, e.g. "{asm_raw}"
	To   string // Artifact template written, e.g. "{asm}"
}

// Stage is one external-process step in a case pipeline.
type Stage struct {
	Name    string
	Command []string      // argv with {placeholder} templates
	Timeout time.Duration // 0 disables the per-stage timeout
	WorkDir string        // Template; empty means the case work directory
	Fixup   *Fixup

	// AcceptNonZero records a non-zero exit as data instead of a failure.
	// Used by single-stage pipelines where the exit status itself is judged.
	AcceptNonZero bool
}

// StageResult captures one executed stage. It is produced exactly once per executed stage.
type StageResult struct {
	StageName string
	Status    StageStatus
	ExitCode  int
	Stdout    string
	Stderr    string
	Elapsed   time.Duration
}

// Succeeded returns true when the stage exited with code 0.
func (r StageResult) Succeeded() bool {
	return r.Status == StageSuccess
}
