package pipeline

import (
	"time"

	"github.com/harrison/rxharness/internal/models"
	"github.com/harrison/rxharness/internal/normalize"
)

// Toolchain holds resolved tool paths.
type Toolchain struct {
	IRPipeline string
	Clang      string
	Reimu      string
}

// StageTimeouts bounds each stage of the IR pipeline.
type StageTimeouts struct {
	IR    time.Duration
	Clang time.Duration
	Reimu time.Duration
}

// IRStages returns the three stage pipeline: lower the case to IR, assemble it
// for {target} with @plt stripped, then execute it in the work dir against
// the case input.
func IRStages(tools Toolchain, timeouts StageTimeouts) []models.Stage {
	return []models.Stage{
		{
			Name:    "ir_pipeline",
			Command: []string{tools.IRPipeline, "{source}", "{ir}"},
			Timeout: timeouts.IR,
		},
		{
			Name:    "clang",
			Command: []string{tools.Clang, "-S", "--target={target}", "{ir}", "-o", "{asm_raw}"},
			Timeout: timeouts.Clang,
			Fixup:   &models.Fixup{Hook: normalize.StripPLTName, From: "{asm_raw}", To: "{asm}"},
		},
		{
			Name:    "reimu",
			Command: []string{tools.Reimu, "-i={input}", "-o={actual}"},
			Timeout: timeouts.Reimu,
			WorkDir: "{workdir}",
		},
	}
}

// CompileStage returns a single stage running binary on the case source. The
// exit status is recorded as data for the judge.
func CompileStage(name, binary string, timeout time.Duration) []models.Stage {
	return []models.Stage{{
		Name:          name,
		Command:       []string{binary, "{source}"},
		Timeout:       timeout,
		AcceptNonZero: true,
	}}
}
