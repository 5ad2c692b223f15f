package chunker

import (
	"regexp"

	"github.com/casetrack/casetrack/parser"
)

const (
	courtOpinionMinChars = 1500
	courtOpinionMaxChars = 2500
	courtOpinionOverlap  = 250 // 10% of 2500
)

// opinionHeadingPattern matches the section headers a published opinion
// breaks into: procedural history, facts, discussion/reasoning, holding,
// and conclusion, in any of their common renderings.
var opinionHeadingPattern = regexp.MustCompile(
	`(?i)^(I{1,3}V?\.|[A-Z]\.)?\s*(PROCEDURAL HISTORY|BACKGROUND|FACTS|STATEMENT OF FACTS|DISCUSSION|ANALYSIS|REASONING|HOLDING|CONCLUSION)\s*$`,
)

// chunkCourtOpinion breaks a court opinion page at holding/reasoning/
// history section headers, then packs each section's paragraphs into
// 1500-2500 char chunks with 10% overlap.
func chunkCourtOpinion(page parser.Page) []Candidate {
	isHeading := func(line string) bool {
		return opinionHeadingPattern.MatchString(line) || IsHeading(line)
	}
	return chunkSectionsWithOverlap(page.Content, isHeading, courtOpinionMaxChars, courtOpinionOverlap)
}
