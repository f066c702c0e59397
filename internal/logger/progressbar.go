package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ResultBar is a fixed-width tally of case outcomes, e.g.
// "[=====xxx  ] 5/10 (50%)": '=' passed, 'x' failed, blank not yet run.
type ResultBar struct {
	Passed int
	Failed int
	Total  int
	Width  int // values < 1 mean 10
	Prefix string
}

// NewResultBar builds a bar from a run summary.
func NewResultBar(passed, failed, total, width int) ResultBar {
	return ResultBar{Passed: passed, Failed: failed, Total: total, Width: width}
}

// Percentage is the passed share of Total, clamped to 0-100.
func (b ResultBar) Percentage() int {
	return percentOf(b.Passed, b.Total)
}

func percentOf(n, total int) int {
	if total <= 0 {
		return 0
	}
	return min(max(n*100/total, 0), 100)
}

// Render draws the bar. With scheme non-nil the segments are colored.
func (b ResultBar) Render(scheme *colorScheme) string {
	width := b.Width
	if width < 1 {
		width = 10
	}
	pass := percentOf(b.Passed, b.Total) * width / 100
	fail := min(percentOf(b.Failed, b.Total)*width/100, width-pass)
	rest := width - pass - fail

	passSeg := strings.Repeat("=", pass)
	failSeg := strings.Repeat("x", fail)
	if scheme != nil {
		passSeg = scheme.success.Sprint(passSeg)
		failSeg = scheme.fail.Sprint(failSeg)
	}

	counts := fmt.Sprintf("%d/%d (%d%%)", b.Passed, b.Total, b.Percentage())
	if scheme != nil {
		counts = color.New(color.Bold).Sprint(counts)
	}
	return fmt.Sprintf("%s[%s%s%s] %s", b.Prefix, passSeg, failSeg, strings.Repeat(" ", rest), counts)
}
