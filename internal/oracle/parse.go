package oracle

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/rxharness/internal/models"
)

const fence = "```"

// verdictBlock matches one "Test-Case / Verdict / Reason / ---" block. The
// reason may span lines and ends at the first "\n---".
var verdictBlock = regexp.MustCompile(
	`Test-Case:\s*(?P<id>.*?)\s*\n` +
		`Verdict:\s*(?P<verdict>.*?)\s*\n` +
		`Reason:\s*(?P<reason>[\s\S]*?)\n---`)

var markdown = goldmark.New()

// StripFence removes an enclosing triple-backtick fence when the whole trimmed
// response is wrapped in one. Otherwise the trimmed response is returned unchanged.
func StripFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, fence) || !strings.HasSuffix(trimmed, fence) {
		return trimmed
	}

	src := []byte(trimmed)
	doc := markdown.Parser().Parse(text.NewReader(src))
	if doc.ChildCount() == 1 {
		if block, ok := doc.FirstChild().(*ast.FencedCodeBlock); ok {
			var buf bytes.Buffer
			lines := block.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return buf.String()
		}
	}

	// Nested fences split the document; drop the outer fence lines instead.
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= 2 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// ParseResponse extracts every well-formed verdict block from a response.
// Malformed blocks are skipped. When an id appears twice the later block wins.
func ParseResponse(response string) map[string]models.Verdict {
	cleaned := StripFence(response)
	results := make(map[string]models.Verdict)

	idIdx := verdictBlock.SubexpIndex("id")
	verdictIdx := verdictBlock.SubexpIndex("verdict")
	reasonIdx := verdictBlock.SubexpIndex("reason")

	for _, m := range verdictBlock.FindAllStringSubmatch(cleaned, -1) {
		id := strings.TrimSpace(m[idIdx])
		if id == "" {
			continue
		}
		results[id] = models.Verdict{
			CaseID:  id,
			Correct: strings.EqualFold(strings.TrimSpace(m[verdictIdx]), "CORRECT"),
			Reason:  strings.TrimSpace(m[reasonIdx]),
		}
	}
	return results
}
