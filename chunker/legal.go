package chunker

import (
	"regexp"
	"strings"
)

// clausePattern matches hierarchical numbered clauses such as
// "1.1", "1.1.1", "12.3.4", etc. at the start of a line.
var clausePattern = regexp.MustCompile(`^(\d+(?:\.\d+)+)\s`)

// DetectClauseBoundaries scans text and returns the rune offsets where
// new numbered clauses begin. Each entry in the returned slice is the
// rune index of the start of a line whose text begins with a clause
// number.
// chunkContract uses these offsets to split a contract page into one
// unit per clause without ever splitting a clause across chunks.
func DetectClauseBoundaries(text string) []int {
	lines := strings.Split(text, "\n")
	var boundaries []int
	offset := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if clausePattern.MatchString(trimmed) {
			boundaries = append(boundaries, offset)
		}
		offset += len([]rune(line)) + 1 // +1 for the newline
	}
	return boundaries
}

// ExtractClauseNumber extracts the leading clause number from text.
// For example, given "1.2.3 The contractor shall..." it returns
// "1.2.3" and true. chunkContract uses this to label each clause unit
// with its clause number for provenance's legal-section field.
func ExtractClauseNumber(text string) (string, bool) {
	text = strings.TrimSpace(text)
	m := clausePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
