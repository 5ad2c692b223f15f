package chunker

import "github.com/casetrack/casetrack/parser"

const (
	contractMinChars = 1500
	contractMaxChars = 2500
)

// chunkContract packs a contract page's numbered clauses (detected by
// clausePattern, e.g. "1.1", "12.3.4") into chunks targeting 1500-2500
// characters. A clause is never split; one that alone exceeds the
// ceiling becomes its own oversized chunk. No overlap.
func chunkContract(page parser.Page) []Candidate {
	units := clauseUnits(page.Content)
	return packUnits(units, contractMaxChars, 0)
}

// clauseUnits splits page content at numbered-clause boundaries found
// by DetectClauseBoundaries, tracking character/paragraph/line ranges
// and labelling each unit with its clause number.
func clauseUnits(content string) []unit {
	boundaries := DetectClauseBoundaries(content)
	if len(boundaries) == 0 {
		return paragraphUnits(content)
	}

	var units []unit
	ends := append(append([]int{}, boundaries[1:]...), len([]rune(content)))
	runes := []rune(content)

	for i, start := range boundaries {
		end := ends[i]
		if i == 0 && start > 0 {
			preamble := trimRunes(runes[:start])
			if preamble != "" {
				units = append(units, unit{text: preamble, charStart: 0, charEnd: start})
			}
		}
		text := trimRunes(runes[start:end])
		if text == "" {
			continue
		}
		label, _ := ExtractClauseNumber(text)
		units = append(units, unit{
			text:      text,
			charStart: start,
			charEnd:   end,
			label:     label,
		})
	}
	return withLineAndParaOffsets(content, units)
}
