package chunker

import (
	"path/filepath"
	"regexp"
	"strings"
)

// filenamePatterns maps a category to regexes tried against the
// document's base filename (without extension, underscores read as
// spaces), checked before any content heuristic.
var filenamePatterns = map[Category][]*regexp.Regexp{
	CategoryContract:     {regexp.MustCompile(`(?i)\b(agreement|contract|nda|lease|msa|sow)\b`)},
	CategoryDeposition:   {regexp.MustCompile(`(?i)\b(depo|deposition|transcript)\b`)},
	CategoryBrief:        {regexp.MustCompile(`(?i)\b(brief|memorandum of law|memo of law)\b`)},
	CategoryCourtOpinion: {regexp.MustCompile(`(?i)\b(opinion|decision|ruling)\b`)},
	CategoryStatute:      {regexp.MustCompile(`(?i)\b(statute|u\.?s\.?c\.?|code)\b`)},
	CategoryDiscovery:    {regexp.MustCompile(`(?i)\b(interrogator(?:y|ies)?|request.{0,4}production|rfp|discovery)\b`)},
	CategoryPleading:     {regexp.MustCompile(`(?i)\b(complaint|answer|petition|pleading|motion)\b`)},
}

// contentPatterns are tried against the document's full text when the
// filename gives no signal, ordered most-specific first.
var contentPatterns = []struct {
	category Category
	pattern  *regexp.Regexp
}{
	{CategoryDeposition, regexp.MustCompile(`(?im)^\s*Q[.:]\s`)},
	{CategoryCourtOpinion, regexp.MustCompile(`(?i)\b(plaintiff-appellant|defendant-appellee|we hold|the court finds|for the foregoing reasons)\b`)},
	{CategoryStatute, regexp.MustCompile(`(?i)\b\d+\s+U\.?S\.?C\.?\s*§|\bshall\s+be\s+(?:unlawful|punished)\b`)},
	{CategoryDiscovery, regexp.MustCompile(`(?i)\b(interrogatory|request for production|request for admission)\b`)},
	{CategoryContract, regexp.MustCompile(`(?i)\b(whereas|now,? therefore|indemnif|this agreement is made)\b`)},
	{CategoryBrief, regexp.MustCompile(`(?i)\b(statement of the case|standard of review|conclusion)\b.*\bargument\b`)},
	{CategoryPleading, regexp.MustCompile(`(?i)\b(comes now|plaintiff alleges|wherefore|prays for relief)\b`)},
}

// Classify assigns one of the nine legal document categories from the
// filename first, falling back to content heuristics, and finally to
// CategoryDefault.
func Classify(filename, fullText string) Category {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.ReplaceAll(base, "_", " ")
	for _, cat := range []Category{
		CategoryContract, CategoryDeposition, CategoryBrief, CategoryCourtOpinion,
		CategoryStatute, CategoryDiscovery, CategoryPleading,
	} {
		for _, re := range filenamePatterns[cat] {
			if re.MatchString(base) {
				return cat
			}
		}
	}

	for _, cp := range contentPatterns {
		if cp.pattern.MatchString(fullText) {
			return cp.category
		}
	}

	return CategoryDefault
}
