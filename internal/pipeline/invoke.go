package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/harrison/rxharness/internal/models"
)

// killGrace bounds how long Wait keeps draining pipes after the process is killed.
const killGrace = 2 * time.Second

// Invocation is the outcome of one external process run.
type Invocation struct {
	Status   models.StageStatus
	ExitCode int // -1 when the process timed out or could not start
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	Err      error // Start failure or cancellation, nil for normal exits
}

// Invoke runs argv in dir, bounded by timeout (0 means unbounded). It never
// returns an error: timeouts, non-zero exits and start failures are reported
// through the Status discriminant. Output captured before a timeout is kept.
func Invoke(ctx context.Context, argv []string, dir string, timeout time.Duration) Invocation {
	if len(argv) == 0 {
		return Invocation{Status: models.StageNonZero, ExitCode: -1, Err: errors.New("empty command")}
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = killGrace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	inv := Invocation{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	switch {
	case err == nil:
		inv.Status = models.StageSuccess
	case timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		inv.Status = models.StageTimeout
		inv.ExitCode = -1
		inv.Err = context.DeadlineExceeded
		if inv.Stderr == "" {
			inv.Stderr = fmt.Sprintf("process timed out after %s", formatSeconds(timeout))
		}
	case ctx.Err() != nil:
		inv.Status = models.StageNonZero
		inv.ExitCode = -1
		inv.Err = ctx.Err()
	default:
		inv.Status = models.StageNonZero
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			inv.ExitCode = exitErr.ExitCode()
		} else {
			inv.ExitCode = -1
			inv.Err = err
			if inv.Stderr == "" {
				inv.Stderr = err.Error()
			}
		}
	}
	return inv
}

// formatSeconds renders d in whole seconds when possible, e.g. "30s" or "0.5s".
func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return fmt.Sprintf("%gs", d.Seconds())
}
