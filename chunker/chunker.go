// Package chunker routes a parsed document's pages through a
// document-type-aware chunking strategy. Every strategy shares the same
// hard rules: no mid-word splits, no chunk crosses a page boundary, and
// legal-structure boundaries (a numbered clause, a Q&A pair, a statute
// subsection) are never crossed mid-chunk.
package chunker

import (
	"strings"

	"github.com/casetrack/casetrack/parser"
	"github.com/casetrack/casetrack/provenance"
)

// Category is the nine-way legal document classification that selects a
// chunking strategy.
type Category string

const (
	CategoryContract       Category = "contract"
	CategoryDeposition     Category = "deposition"
	CategoryBrief          Category = "brief"
	CategoryCourtOpinion   Category = "court_opinion"
	CategoryStatute        Category = "statute"
	CategoryCorrespondence Category = "correspondence"
	CategoryDiscovery      Category = "discovery"
	CategoryPleading       Category = "pleading"
	CategoryDefault        Category = "default"
)

// Candidate is a chunk produced by a strategy, still page-relative and
// without a document id, chunk id, or sequence — ChunkDocument assigns
// sequence once all pages are chunked; Store assigns ids.
type Candidate struct {
	Text             string
	Page             int
	ParagraphStart   int
	ParagraphEnd     int
	LineStart        int
	LineEnd          int
	CharStart        int // offset from start of page, inclusive
	CharEnd          int // exclusive
	SectionLabel     string
	Sequence         int
	ExtractionMethod provenance.ExtractionMethod
	OCRConfidence    *float64
}

// pageChunker produces candidates from a single page's text. Every
// strategy below implements it; none may cross the page boundary since
// they only ever see one page's content.
type pageChunker func(page parser.Page) []Candidate

// strategies maps each category to its page chunker. Correspondence,
// pleading, and the default fallback are intentionally the same
// paragraph-aware strategy (spec's own table groups all three).
var strategies = map[Category]pageChunker{
	CategoryContract:       chunkContract,
	CategoryDeposition:     chunkDeposition,
	CategoryBrief:          chunkBrief,
	CategoryCourtOpinion:   chunkCourtOpinion,
	CategoryStatute:        chunkStatute,
	CategoryDiscovery:      chunkDiscovery,
	CategoryCorrespondence: chunkDefault,
	CategoryPleading:       chunkDefault,
	CategoryDefault:        chunkDefault,
}

// ChunkDocument chunks every page of a parsed document with the
// strategy selected by category, assigning a document-wide dense
// gap-free sequence across all pages in order.
func ChunkDocument(doc *parser.ParsedDocument, category Category) []Candidate {
	strategy, ok := strategies[category]
	if !ok {
		strategy = chunkDefault
	}

	var out []Candidate
	seq := 0
	for _, page := range doc.Pages {
		if page.ExtractionMethod == parser.Skipped {
			continue
		}
		for _, c := range strategy(page) {
			c.Page = page.Number
			c.ExtractionMethod = provenance.ExtractionMethod(page.ExtractionMethod)
			c.OCRConfidence = page.OCRConfidence
			c.Sequence = seq
			out = append(out, c)
			seq++
		}
	}
	return out
}

// estimateChars is the unit the spec's per-type bounds are measured in:
// literal character count, not a token approximation.
func estimateChars(s string) int {
	return len([]rune(s))
}

// trailingWords returns the trailing portion of text whose rune count is
// at most maxChars, trimmed forward to the next word boundary so overlap
// text never starts mid-word (it can therefore be shorter than maxChars).
func trailingWords(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return strings.TrimSpace(text)
	}
	start := len(runes) - maxChars
	for start < len(runes) && runes[start] != ' ' && runes[start] != '\n' {
		start++
	}
	return strings.TrimSpace(string(runes[start:]))
}
