package chunker

import (
	"regexp"

	"github.com/casetrack/casetrack/parser"
)

const (
	statuteMinChars = 1000
	statuteMaxChars = 2000
)

// subsectionPattern matches statute subsection markers at the start of a
// line: "(a)", "(1)", "(a)(1)", or "§ 1983".
var subsectionPattern = regexp.MustCompile(`^(?:\([a-zA-Z0-9]+\))+|^§\s*\S+`)

// chunkStatute packs statute sections/subsections into 1000-2000 char
// chunks, never splitting a subsection.
func chunkStatute(page parser.Page) []Candidate {
	units := subsectionUnits(page.Content)
	return packUnits(units, statuteMaxChars, 0)
}

func subsectionUnits(content string) []unit {
	units := splitAtLineMatch(content, subsectionPattern.MatchString)
	if len(units) == 0 {
		return paragraphUnits(content)
	}
	return units
}
