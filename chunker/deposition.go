package chunker

import (
	"strings"

	"github.com/casetrack/casetrack/parser"
)

const (
	depositionMinChars = 1000
	depositionMaxChars = 3000
)

// chunkDeposition groups each question with its answer (detected by a
// line starting "Q." or "Q:") into a single unit, then packs those Q&A
// units into 1000-3000 char chunks. A pair is never split.
func chunkDeposition(page parser.Page) []Candidate {
	units := qaUnits(page.Content)
	return packUnits(units, depositionMaxChars, 0)
}

func isQLineStart(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "Q.") || strings.HasPrefix(trimmed, "Q:")
}

// qaUnits groups consecutive lines into Q&A pairs: a run starting at a
// Q-line and continuing until (but not including) the next Q-line.
// Leading lines before the first Q-line (e.g. a transcript caption) form
// their own preamble unit.
func qaUnits(content string) []unit {
	return splitAtLineMatch(content, isQLineStart)
}
