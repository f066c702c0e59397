package discovery

import (
	"bufio"
	"bytes"
	"strings"
)

const annotationPrefix = "verdict:"

// verdictTokens is the closed vocabulary of inline annotation tokens.
var verdictTokens = map[string]bool{
	"pass":    true,
	"success": true,
	"ok":      true,
	"fail":    false,
	"failure": false,
	"error":   false,
}

// ParseToken maps an annotation token to whether the toolchain is expected to
// accept the source. Matching is case-insensitive.
func ParseToken(token string) (expectSuccess bool, ok bool) {
	expectSuccess, ok = verdictTokens[strings.ToLower(strings.TrimSpace(token))]
	return expectSuccess, ok
}

// findAnnotation returns the token of the first "Verdict:" line in src.
func findAnnotation(src []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len(annotationPrefix) {
			continue
		}
		if strings.EqualFold(line[:len(annotationPrefix)], annotationPrefix) {
			return strings.TrimSpace(line[len(annotationPrefix):]), true
		}
	}
	return "", false
}
