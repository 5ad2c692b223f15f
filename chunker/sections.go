package chunker

import "strings"

// chunkSectionsWithOverlap splits content at heading lines matched by
// isHeading, then packs each section's paragraphs independently into
// maxChars chunks with the given char overlap. Overlap resets at each
// section boundary: a heading is a hard structural break even though the
// paragraphs inside a section are not.
func chunkSectionsWithOverlap(content string, isHeading func(string) bool, maxChars, overlapChars int) []Candidate {
	sections := splitAtLineMatch(content, isHeading)
	runes := []rune(content)

	var out []Candidate
	for _, sec := range sections {
		subUnits := paragraphUnits(string(runes[sec.charStart:sec.charEnd]))
		for i := range subUnits {
			subUnits[i].charStart += sec.charStart
			subUnits[i].charEnd += sec.charStart
		}
		subUnits = withLineAndParaOffsets(content, subUnits)
		label := firstLine(sec.text)
		packed := packUnits(subUnits, maxChars, overlapChars)
		for i := range packed {
			packed[i].SectionLabel = label
		}
		out = append(out, packed...)
	}
	return out
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return strings.TrimSpace(text)
}
