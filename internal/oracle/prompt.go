package oracle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultSystemPrompt instructs the remote judge to answer in the block
// grammar ParseResponse understands.
const DefaultSystemPrompt = `You review the output of a compiler front end for a Rust-like language.
For every test case you receive its source and the compiler output. Decide
whether the compiler behaved correctly: a well-formed program must compile
silently, an ill-formed one must be rejected with a relevant diagnostic.

Answer with exactly one block per test case, in this format:

Test-Case: <name>
Verdict: CORRECT or INCORRECT
Reason: <short explanation>
---
`

// LoadSystemPrompt reads the system instruction from path. An empty path or a
// missing file yields DefaultSystemPrompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSystemPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}
