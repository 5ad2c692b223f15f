package chunker

import (
	"regexp"

	"github.com/casetrack/casetrack/parser"
)

const (
	briefMinChars  = 1500
	briefMaxChars  = 2500
	briefOverlap   = 250 // 10% of 2500
)

// argumentHeadingPattern matches the headings briefs use to introduce a
// new argument: "ARGUMENT", roman/arabic numbered points ("I.",
// "II.", "A."), or a "Point N" label.
var argumentHeadingPattern = regexp.MustCompile(`(?i)^(ARGUMENT|POINT\s+[IVXLCDM\d]+\b|[IVXLCDM]+\.\s+\S|[A-Z]\.\s+\S)`)

// chunkBrief breaks a brief page at argument headings, then packs each
// argument's paragraphs into 1500-2500 char chunks with 10% overlap.
func chunkBrief(page parser.Page) []Candidate {
	isHeading := func(line string) bool {
		return argumentHeadingPattern.MatchString(line) || IsHeading(line)
	}
	return chunkSectionsWithOverlap(page.Content, isHeading, briefMaxChars, briefOverlap)
}
