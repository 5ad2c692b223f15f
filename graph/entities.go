package graph

import (
	"regexp"
	"sort"
	"strings"

	"github.com/casetrack/casetrack/casestore"
)

// mentionContextChars is how much surrounding text is kept on either side
// of a mention for the context snippet (spec §4.2 step 6, ~100 chars).
const mentionContextChars = 100

// entityPattern pairs a compiled regex with the entity type it produces
// and the capture group holding the actual name text (0 means the whole
// match).
type entityPattern struct {
	entityType casestore.EntityType
	re         *regexp.Regexp
	group      int
}

// properName matches a run of capitalized words, optionally joined by
// "&", "and", periods or hyphens, the building block for party, judge,
// attorney and organization patterns below.
const properName = `[A-Z][A-Za-z.'-]*(?:\s+(?:&|and|of|the|[A-Z][A-Za-z.'-]*))*`

var entityPatterns = []entityPattern{
	{casestore.EntityParty, regexp.MustCompile(`(?:Plaintiffs?|Defendants?|Petitioners?|Respondents?|Appellants?|Appellees?)\s*,?\s+(` + properName + `)`), 1},
	{casestore.EntityCourt, regexp.MustCompile(`((?:United States |U\.S\. )?(?:District |Superior |Circuit |Supreme |Bankruptcy |Appellate )?Court(?: of Appeals)?(?: for the [A-Za-z.' ]+(?:Circuit|District))?(?: of [A-Za-z.' ]+)?)`), 1},
	{casestore.EntityJudge, regexp.MustCompile(`(?:Judge|Justice|Chief Judge|The Honorable|Hon\.)\s+(` + properName + `)`), 1},
	{casestore.EntityAttorney, regexp.MustCompile(`(` + properName + `),?\s+Esq\.|(?:[Cc]ounsel for [A-Za-z ]+,?\s+)(` + properName + `)`), 0},
	{casestore.EntityStatute, regexp.MustCompile(`(\d+\s+U\.S\.C\.(?:A\.)?\s+§+\s*[0-9][0-9a-zA-Z.-]*)`), 1},
	{casestore.EntityCaseNumber, regexp.MustCompile(`(?:Case\s+No\.|Case\s+Number|No\.)\s*([0-9]{1,2}:[0-9]{2}-[a-zA-Z]{2}-[0-9]{3,6}(?:-[A-Za-z]+)?|[0-9]{2,4}-[0-9]{3,6})`), 1},
	{casestore.EntityJurisdiction, regexp.MustCompile(`(?:State of|Commonwealth of)\s+(` + properName + `)|(United States of America)`), 0},
	{casestore.EntityRemedy, regexp.MustCompile(`(?i)(compensatory damages|punitive damages|consequential damages|liquidated damages|injunctive relief|specific performance|rescission|restitution|declaratory judgment|equitable relief)`), 1},
	{casestore.EntityLegalConcept, regexp.MustCompile(`(?i)(breach of contract|negligence|indemnification|force majeure|good faith|fiduciary duty|statute of limitations|unjust enrichment|promissory estoppel|due process|proximate cause|strict liability)`), 1},
	{casestore.EntityWitness, regexp.MustCompile(`(?:[Ww]itness|[Dd]eponent)\s+(` + properName + `)`), 1},
	{casestore.EntityExhibit, regexp.MustCompile(`(?:Exhibit|Exh\.)\s+([A-Z0-9]+(?:-[0-9]+)?)`), 1},
	{casestore.EntityDocketEntry, regexp.MustCompile(`(?:Docket No\.|Dkt\.\s*No\.|ECF No\.)\s*([0-9]+(?:-[0-9]+)?)`), 1},
	{casestore.EntityOrganization, regexp.MustCompile(`(` + properName + `(?:,?\s+(?:Inc|LLC|L\.L\.C|Corp|Corporation|Co|Company|L\.P|LP|Ltd)\.?))`), 1},
	{casestore.EntityPerson, regexp.MustCompile(`(?:Mr\.|Ms\.|Mrs\.|Dr\.)\s+(` + properName + `)`), 1},
	{casestore.EntityDate, regexp.MustCompile(`((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}|\d{1,2}/\d{1,2}/\d{2,4})`), 1},
	{casestore.EntityAmount, regexp.MustCompile(`(\$[0-9][0-9,]*(?:\.[0-9]{2})?(?:\s+(?:million|billion|thousand))?)`), 1},
	{casestore.EntityLocation, regexp.MustCompile(`(?:City of|County of)\s+(` + properName + `)`), 1},
}

// ExtractEntities scans chunk text for occurrences of the closed
// seventeen-type legal entity taxonomy, returning one mention per match
// with a surrounding context snippet. Overlapping matches from different
// patterns are all kept; normalized_name dedup and mention-count merging
// happen downstream in casestore.UpsertEntity.
func ExtractEntities(text string) []casestore.EntityMention {
	var mentions []casestore.EntityMention

	for _, p := range entityPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			group := p.group
			start, end := loc[2*group], loc[2*group+1]
			if start < 0 || end < 0 || start >= end {
				continue
			}
			name := strings.TrimSpace(text[start:end])
			name = strings.Trim(name, ",.;: ")
			if name == "" {
				continue
			}
			mentions = append(mentions, casestore.EntityMention{
				EntityType:     p.entityType,
				NormalizedName: normalizeEntityName(name),
				CharStart:      start,
				CharEnd:        end,
				Context:        contextWindow(text, start, end),
			})
		}
	}

	sort.Slice(mentions, func(i, j int) bool {
		return mentions[i].CharStart < mentions[j].CharStart
	})
	return mentions
}

// normalizeEntityName lowercases and collapses internal whitespace so
// that "Jane   Doe" and "jane doe" resolve to the same canonical entity.
func normalizeEntityName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// contextWindow returns up to mentionContextChars runes on either side of
// [start, end), clipped to the text bounds and never splitting a UTF-8
// rune in half.
func contextWindow(text string, start, end int) string {
	runes := []rune(text)
	byteToRune := make([]int, 0, len(runes)+1)
	offset := 0
	for i, r := range runes {
		byteToRune = append(byteToRune, offset)
		offset += len(string(r))
		_ = i
	}
	byteToRune = append(byteToRune, offset)

	startRune := 0
	endRune := len(runes)
	for i, b := range byteToRune {
		if b <= start {
			startRune = i
		}
		if b <= end {
			endRune = i
		}
	}

	lo := startRune - mentionContextChars
	if lo < 0 {
		lo = 0
	}
	hi := endRune + mentionContextChars
	if hi > len(runes) {
		hi = len(runes)
	}
	return strings.TrimSpace(string(runes[lo:hi]))
}
