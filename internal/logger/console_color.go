package logger

import (
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/rxharness/internal/models"
)

// colorScheme defines consistent colors for levels and case statuses.
// Green: pass
// Red: failure or regression
// Yellow: timeout, missing artifacts and new cases
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	muted   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		muted:   color.New(color.FgHiBlack),
	}
}

func (cs *colorScheme) level(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return cs.muted.Sprint(level)
	case "DEBUG":
		return cs.label.Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return cs.warn.Sprint(level)
	case "ERROR":
		return cs.fail.Sprint(level)
	}
	return level
}

// status colors a rendered case status.
func (cs *colorScheme) status(res models.CaseResult, text string) string {
	if res.Baseline == models.BaselineNew {
		return cs.warn.Sprint(text)
	}
	switch res.Status {
	case models.CasePass:
		return cs.success.Sprint(text)
	case models.CaseTimeout, models.CaseMissingArtifacts:
		return cs.warn.Sprint(text)
	}
	return cs.fail.Sprint(text)
}
