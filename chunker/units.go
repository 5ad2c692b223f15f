package chunker

import "strings"

// unit is one indivisible piece of structure (a clause, a Q&A pair, a
// statute subsection, a paragraph) located within a page's text. A
// strategy's packer never splits a unit across two chunks.
type unit struct {
	text                         string
	charStart, charEnd           int
	paraStart, paraEnd           int
	lineStart, lineEnd           int
	label                        string // e.g. a detected clause number
}

// paragraphUnits splits page content on blank lines into units,
// tracking each paragraph's character, paragraph-index, and line-index
// range within the page.
func paragraphUnits(content string) []unit {
	var units []unit
	paraIdx := 0
	offset := 0
	lineNo := 0

	blocks := strings.Split(content, "\n\n")
	for _, block := range blocks {
		blockLines := strings.Count(block, "\n") + 1
		trimmed := strings.TrimSpace(block)
		start := offset + leadingWhitespace(block)
		if trimmed != "" {
			units = append(units, unit{
				text:      trimmed,
				charStart: start,
				charEnd:   start + len([]rune(trimmed)),
				paraStart: paraIdx,
				paraEnd:   paraIdx,
				lineStart: lineNo,
				lineEnd:   lineNo + strings.Count(trimmed, "\n"),
			})
			paraIdx++
		}
		offset += len([]rune(block)) + 2 // +2 for the stripped "\n\n"
		lineNo += blockLines + 1
	}
	return units
}

func leadingWhitespace(s string) int {
	trimmed := strings.TrimLeft(s, " \t\n")
	return len([]rune(s)) - len([]rune(trimmed))
}

// trimRunes trims whitespace from a rune slice, returning a string.
func trimRunes(r []rune) string {
	return strings.TrimSpace(string(r))
}

// withLineAndParaOffsets fills in paragraph- and line-index ranges for
// units whose char offsets are already known, by counting paragraph
// ("\n\n") and line ("\n") breaks in content before each offset. Used by
// strategies (contract, statute, discovery) that detect structure by
// regexp over raw content rather than by walking paragraph/line units
// directly.
func withLineAndParaOffsets(content string, units []unit) []unit {
	runes := []rune(content)
	for i := range units {
		units[i].paraStart = strings.Count(string(runes[:units[i].charStart]), "\n\n")
		units[i].paraEnd = strings.Count(string(runes[:units[i].charEnd]), "\n\n")
		units[i].lineStart = strings.Count(string(runes[:units[i].charStart]), "\n")
		units[i].lineEnd = strings.Count(string(runes[:units[i].charEnd]), "\n")
	}
	return units
}

// lineUnits splits page content into one unit per non-empty line,
// tracking character and line offsets. Used by strategies that detect
// structure at line granularity (deposition Q-lines, discovery item
// markers).
func lineUnits(content string) []unit {
	var units []unit
	offset := 0
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			start := offset + leadingWhitespace(line)
			units = append(units, unit{
				text:      trimmed,
				charStart: start,
				charEnd:   start + len([]rune(trimmed)),
				paraStart: i,
				paraEnd:   i,
				lineStart: i,
				lineEnd:   i,
			})
		}
		offset += len([]rune(line)) + 1 // +1 for the stripped "\n"
	}
	return units
}

// mergeLines combines consecutive line units (as produced by lineUnits)
// into a single unit, used once Q&A pairs / request-response groups have
// been identified as runs of line indices.
func mergeLines(lines []unit) unit {
	if len(lines) == 0 {
		return unit{}
	}
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text
	}
	first, last := lines[0], lines[len(lines)-1]
	return unit{
		text:      strings.Join(texts, "\n"),
		charStart: first.charStart,
		charEnd:   last.charEnd,
		paraStart: first.paraStart,
		paraEnd:   last.paraEnd,
		lineStart: first.lineStart,
		lineEnd:   last.lineEnd,
		label:     first.label,
	}
}

// splitAtLineMatch groups consecutive lines into units: a new unit
// starts each time a line matches, and everything up to (but not
// including) the next match is folded into it. Lines before the first
// match form a leading preamble unit. Shared by every strategy that
// detects structure from a line-start marker (Q-lines, statute
// subsections, discovery item numbers, section headings).
func splitAtLineMatch(content string, matches func(line string) bool) []unit {
	lines := lineUnits(content)
	if len(lines) == 0 {
		return nil
	}

	var units []unit
	var current []unit
	for _, l := range lines {
		if matches(l.text) && len(current) > 0 {
			units = append(units, mergeLines(current))
			current = nil
		}
		current = append(current, l)
	}
	if len(current) > 0 {
		units = append(units, mergeLines(current))
	}
	return units
}

// packUnits greedily packs units into candidates, never splitting a
// unit, flushing once the next unit would push the group past its
// budget (units are joined by a blank line, counted as two characters).
// A single unit already over budget becomes its own oversized
// candidate. When overlapChars > 0, each candidate (after the first)
// is prefixed with the trailing overlapChars of the previous candidate's
// text, and its CharStart is pulled back to the start of that overlap —
// so every group after the first is packed to maxChars-overlapChars-2,
// reserving room for the overlap prefix and its separator. The overlap
// is shortened when a group leaves less room than that, so the result
// never exceeds maxChars unless a single unit alone does.
func packUnits(units []unit, maxChars, overlapChars int) []Candidate {
	var out []Candidate
	i := 0
	for i < len(units) {
		budget := maxChars
		if overlapChars > 0 && len(out) > 0 {
			budget = maxChars - overlapChars - 2
		}

		group := []unit{units[i]}
		groupLen := len([]rune(units[i].text))
		i++
		for i < len(units) {
			next := len([]rune(units[i].text))
			if groupLen+2+next > budget {
				break
			}
			group = append(group, units[i])
			groupLen += 2 + next
			i++
		}

		texts := make([]string, len(group))
		for j, u := range group {
			texts[j] = u.text
		}
		first, last := group[0], group[len(group)-1]
		cand := Candidate{
			Text:           strings.Join(texts, "\n\n"),
			ParagraphStart: first.paraStart,
			ParagraphEnd:   last.paraEnd,
			LineStart:      first.lineStart,
			LineEnd:        last.lineEnd,
			CharStart:      first.charStart,
			CharEnd:        last.charEnd,
			SectionLabel:   first.label,
		}

		if overlapChars > 0 && len(out) > 0 {
			prev := out[len(out)-1]
			room := overlapChars
			if r := maxChars - estimateChars(cand.Text) - 2; r < room {
				room = r
			}
			overlap := ""
			if room > 0 {
				overlap = trailingWords(prev.Text, room)
			}
			if overlap != "" {
				cand.Text = overlap + "\n\n" + cand.Text
				backfill := cand.CharStart - len([]rune(overlap))
				if backfill >= prev.CharStart {
					cand.CharStart = backfill
				} else {
					cand.CharStart = prev.CharStart
				}
			}
		}

		out = append(out, cand)
	}
	return out
}
