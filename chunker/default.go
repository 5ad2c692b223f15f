package chunker

import (
	"strings"

	"github.com/casetrack/casetrack/parser"
)

const (
	defaultTargetChars = 2000
	defaultMaxChars    = 2200
	defaultMinChars    = 400
	defaultOverlap     = 200
)

// chunkDefault is the paragraph-aware fallback used for pleadings,
// correspondence, and anything not otherwise classified: paragraph break
// preferred, then sentence, then word, targeting 2000 chars (hard
// ceiling 2200, floor 400), with a 200-char overlap between chunks.
func chunkDefault(page parser.Page) []Candidate {
	units := paragraphUnits(page.Content)
	if len(units) == 0 {
		return nil
	}

	var expanded []unit
	for _, u := range units {
		expanded = append(expanded, splitOversizedUnit(u, defaultMaxChars)...)
	}

	chunks := packUnits(expanded, defaultMaxChars, defaultOverlap)
	return mergeUndersized(chunks, defaultMinChars, defaultMaxChars)
}

// splitOversizedUnit recursively breaks a unit that exceeds maxChars:
// first at sentence boundaries, then — for a single sentence still over
// the limit — at word boundaries. Rune offsets are preserved throughout
// so provenance stays accurate down to the final fragment.
func splitOversizedUnit(u unit, maxChars int) []unit {
	if estimateChars(u.text) <= maxChars {
		return []unit{u}
	}

	sentences := sentenceUnits(u)
	if len(sentences) <= 1 {
		return splitByWords(u, maxChars)
	}

	var out []unit
	for _, s := range sentences {
		out = append(out, splitOversizedUnit(s, maxChars)...)
	}
	return out
}

// sentenceUnits splits a unit's text into sentence-level sub-units,
// preserving absolute char offsets relative to the page.
func sentenceUnits(u unit) []unit {
	runes := []rune(u.text)
	var out []unit
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '.' || r == '?' || r == '!' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				text := trimRunes(runes[start : i+1])
				if text != "" {
					out = append(out, unit{
						text:      text,
						charStart: u.charStart + start,
						charEnd:   u.charStart + i + 1,
						paraStart: u.paraStart,
						paraEnd:   u.paraEnd,
						lineStart: u.lineStart,
						lineEnd:   u.lineEnd,
					})
				}
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		text := trimRunes(runes[start:])
		if text != "" {
			out = append(out, unit{
				text:      text,
				charStart: u.charStart + start,
				charEnd:   u.charEnd,
				paraStart: u.paraStart,
				paraEnd:   u.paraEnd,
				lineStart: u.lineStart,
				lineEnd:   u.lineEnd,
			})
		}
	}
	return out
}

// splitByWords is the last-resort fallback for a single sentence longer
// than maxChars: break at word boundaries so no fragment splits a word.
func splitByWords(u unit, maxChars int) []unit {
	words := strings.Fields(u.text)
	if len(words) == 0 {
		return []unit{u}
	}

	var out []unit
	var current []string
	currentLen := 0
	offset := 0
	fragStart := u.charStart

	flush := func(endOffset int) {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		out = append(out, unit{
			text:      text,
			charStart: fragStart,
			charEnd:   u.charStart + endOffset,
			paraStart: u.paraStart,
			paraEnd:   u.paraEnd,
			lineStart: u.lineStart,
			lineEnd:   u.lineEnd,
		})
		current = nil
		currentLen = 0
	}

	for _, w := range words {
		wLen := len([]rune(w))
		if currentLen > 0 && currentLen+1+wLen > maxChars {
			flush(offset)
			fragStart = u.charStart + offset
		}
		if currentLen > 0 {
			currentLen++
		}
		currentLen += wLen
		current = append(current, w)
		offset += wLen + 1
	}
	flush(offset)
	return out
}

// mergeUndersized folds any chunk below minChars into the chunk before
// it so a page doesn't end with a sliver fragment, except when it is the
// page's only chunk or when merging would push that chunk over maxChars —
// in that case the sliver is left as its own undersized chunk rather than
// breaking the ceiling. An undersized first chunk is never merged into
// the chunk after it.
func mergeUndersized(chunks []Candidate, minChars, maxChars int) []Candidate {
	if len(chunks) <= 1 {
		return chunks
	}

	var out []Candidate
	for _, c := range chunks {
		if len(out) > 0 && estimateChars(c.Text) < minChars {
			prev := &out[len(out)-1]
			if estimateChars(prev.Text)+2+estimateChars(c.Text) <= maxChars {
				prev.Text = prev.Text + "\n\n" + c.Text
				prev.CharEnd = c.CharEnd
				prev.ParagraphEnd = c.ParagraphEnd
				prev.LineEnd = c.LineEnd
				continue
			}
		}
		out = append(out, c)
	}

	if len(out) > 1 && estimateChars(out[len(out)-1].Text) < minChars {
		last := out[len(out)-1]
		prev := &out[len(out)-2]
		if estimateChars(prev.Text)+2+estimateChars(last.Text) <= maxChars {
			out = out[:len(out)-1]
			prev.Text = prev.Text + "\n\n" + last.Text
			prev.CharEnd = last.CharEnd
			prev.ParagraphEnd = last.ParagraphEnd
			prev.LineEnd = last.LineEnd
		}
	}

	return out
}
