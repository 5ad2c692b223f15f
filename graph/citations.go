package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/casetrack/casetrack/casestore"
)

// citationMatch is one located Bluebook citation before it is handed to
// casestore, carrying the offsets ExtractCitations needs for the mention
// record and, for short forms, the raw matched text used to resolve
// against the chunk's most recent full citation.
type citationMatch struct {
	citation  casestore.Citation
	charStart int
	charEnd   int
	shortForm bool
	shortText string
}

var (
	// reCaseLaw matches "Party v. Party, Vol. Reporter Page[, Pin] (Court Year)".
	reCaseLaw = regexp.MustCompile(`([A-Z][A-Za-z.&'-]+(?:\s+(?:of|the|and|&|[A-Z][A-Za-z.&'-]*)){0,4})\s+v\.\s+([A-Z][A-Za-z.&'-]+(?:\s+[A-Za-z.&'-]+){0,4}),\s+(\d+)\s+([A-Z][A-Za-z0-9.]*(?:\s?[A-Za-z0-9.]+)?)\s+(\d+)(?:,\s*(\d+))?\s*\(([^()]*?)\s*(\d{4})\)`)

	// reStatute matches "Title U.S.C. § Section".
	reStatute = regexp.MustCompile(`(\d+)\s+U\.S\.C\.(?:A\.)?\s+§+\s*([0-9][0-9a-zA-Z.-]*)`)

	// reRegulation matches "Title C.F.R. § Section".
	reRegulation = regexp.MustCompile(`(\d+)\s+C\.F\.R\.\s+§+\s*(\d+(?:\.\d+)?)`)

	// reConstitution matches "U.S. Const. art./amend. N[, § M]".
	reConstitution = regexp.MustCompile(`U\.S\.\s+Const\.\s+(art\.|amend\.)\s+([IVXLC]+|\d+)(?:,?\s+§\s*(\d+))?`)

	// reRule matches Federal Rules citations and bare "Rule N" references.
	reRule = regexp.MustCompile(`(?:Fed\.\s+R\.\s+(Civ|Crim|Evid|App)\.\s+P\.\s+(\d+(?:\([a-zA-Z0-9]+\))*)|Rule\s+(\d+(?:\([a-zA-Z0-9]+\))*))`)

	// reShortForm matches Id., Id. at N, supra note N, infra Part X.
	reShortForm = regexp.MustCompile(`\bId\.(?:\s+at\s+(\d+))?|\bsupra\s+note\s+(\d+)|\binfra\s+Part\s+([IVXLC0-9]+)`)
)

// ExtractCitations scans chunk text for Bluebook-format legal citations
// across all six forms the spec names. lastFullCitation is the normalized
// form of the most recently seen full citation in the same
// chunk/document, used to resolve short forms ("Id.", "supra note N");
// callers thread it across chunks in document order. It returns the
// located citations plus the (possibly updated) last full citation for
// the caller to pass into the next chunk.
func ExtractCitations(text string, lastFullCitation string) ([]citationMatch, string) {
	var matches []citationMatch

	for _, loc := range reCaseLaw.FindAllStringSubmatchIndex(text, -1) {
		plaintiff := text[loc[2]:loc[3]]
		defendant := text[loc[4]:loc[5]]
		volume := text[loc[6]:loc[7]]
		reporter := text[loc[8]:loc[9]]
		page := text[loc[10]:loc[11]]
		court := strings.TrimSpace(text[loc[14]:loc[15]])
		year := text[loc[16]:loc[17]]

		normalized := fmt.Sprintf("%s v. %s, %s %s %s (%s %s)",
			strings.TrimSpace(plaintiff), strings.TrimSpace(defendant), volume, normalizeReporter(reporter), page, court, year)
		fields := map[string]string{
			"plaintiff": strings.TrimSpace(plaintiff),
			"defendant": strings.TrimSpace(defendant),
			"volume":    volume,
			"reporter":  normalizeReporter(reporter),
			"page":      page,
			"court":     court,
			"year":      year,
		}
		if loc[12] >= 0 && loc[13] >= 0 {
			fields["pincite"] = text[loc[12]:loc[13]]
		}
		matches = append(matches, citationMatch{
			citation: casestore.Citation{
				Normalized: normalized,
				FullText:   strings.TrimSpace(text[loc[0]:loc[1]]),
				Type:       casestore.CitationCaseLaw,
				Fields:     fields,
			},
			charStart: loc[0],
			charEnd:   loc[1],
		})
		lastFullCitation = normalized
	}

	for _, loc := range reStatute.FindAllStringSubmatchIndex(text, -1) {
		title := text[loc[2]:loc[3]]
		section := text[loc[4]:loc[5]]
		normalized := fmt.Sprintf("%s U.S.C. § %s", title, section)
		matches = append(matches, citationMatch{
			citation: casestore.Citation{
				Normalized: normalized,
				FullText:   strings.TrimSpace(text[loc[0]:loc[1]]),
				Type:       casestore.CitationStatute,
				Fields:     map[string]string{"title": title, "section": section},
			},
			charStart: loc[0],
			charEnd:   loc[1],
		})
		lastFullCitation = normalized
	}

	for _, loc := range reRegulation.FindAllStringSubmatchIndex(text, -1) {
		title := text[loc[2]:loc[3]]
		section := text[loc[4]:loc[5]]
		normalized := fmt.Sprintf("%s C.F.R. § %s", title, section)
		matches = append(matches, citationMatch{
			citation: casestore.Citation{
				Normalized: normalized,
				FullText:   strings.TrimSpace(text[loc[0]:loc[1]]),
				Type:       casestore.CitationRegulation,
				Fields:     map[string]string{"title": title, "section": section},
			},
			charStart: loc[0],
			charEnd:   loc[1],
		})
		lastFullCitation = normalized
	}

	for _, loc := range reConstitution.FindAllStringSubmatchIndex(text, -1) {
		kind := text[loc[2]:loc[3]]
		num := text[loc[4]:loc[5]]
		normalized := fmt.Sprintf("U.S. Const. %s %s", kind, num)
		fields := map[string]string{"kind": strings.TrimSuffix(kind, "."), "number": num}
		if loc[6] >= 0 && loc[7] >= 0 {
			section := text[loc[6]:loc[7]]
			normalized = fmt.Sprintf("%s, § %s", normalized, section)
			fields["section"] = section
		}
		matches = append(matches, citationMatch{
			citation: casestore.Citation{
				Normalized: normalized,
				FullText:   strings.TrimSpace(text[loc[0]:loc[1]]),
				Type:       casestore.CitationConstitution,
				Fields:     fields,
			},
			charStart: loc[0],
			charEnd:   loc[1],
		})
		lastFullCitation = normalized
	}

	for _, loc := range reRule.FindAllStringSubmatchIndex(text, -1) {
		var normalized string
		fields := map[string]string{}
		if loc[2] >= 0 && loc[3] >= 0 {
			set := text[loc[2]:loc[3]]
			num := text[loc[4]:loc[5]]
			normalized = fmt.Sprintf("Fed. R. %s. P. %s", set, num)
			fields["set"] = set
			fields["number"] = num
		} else {
			num := text[loc[6]:loc[7]]
			normalized = fmt.Sprintf("Rule %s", num)
			fields["number"] = num
		}
		matches = append(matches, citationMatch{
			citation: casestore.Citation{
				Normalized: normalized,
				FullText:   strings.TrimSpace(text[loc[0]:loc[1]]),
				Type:       casestore.CitationRule,
				Fields:     fields,
			},
			charStart: loc[0],
			charEnd:   loc[1],
		})
		lastFullCitation = normalized
	}

	for _, loc := range reShortForm.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if lastFullCitation == "" {
			continue // nothing to resolve against yet
		}
		resolved := lastFullCitation
		fields := map[string]string{"resolves_to": lastFullCitation}
		switch {
		case loc[2] >= 0 && loc[3] >= 0:
			fields["pincite"] = text[loc[2]:loc[3]]
		case loc[4] >= 0 && loc[5] >= 0:
			fields["note"] = text[loc[4]:loc[5]]
		case loc[6] >= 0 && loc[7] >= 0:
			fields["part"] = text[loc[6]:loc[7]]
		}
		matches = append(matches, citationMatch{
			citation: casestore.Citation{
				Normalized: resolved,
				FullText:   strings.TrimSpace(raw),
				Type:       casestore.CitationShortForm,
				Fields:     fields,
			},
			charStart: loc[0],
			charEnd:   loc[1],
			shortForm: true,
			shortText: strings.TrimSpace(raw),
		})
	}

	return matches, lastFullCitation
}

// DetectCitations scans arbitrary text — a retrieval query, not a chunk —
// for full-form Bluebook citations and returns their normalized canonical
// forms, for the retrieval package's citation fast path (spec §4.5 stage
// 0). Short forms are not resolved here since a bare query has no prior
// citation to resolve against.
func DetectCitations(text string) []casestore.Citation {
	matches, _ := ExtractCitations(text, "")
	out := make([]casestore.Citation, 0, len(matches))
	for _, m := range matches {
		if m.shortForm {
			continue
		}
		out = append(out, m.citation)
	}
	return out
}

// normalizeReporter collapses internal whitespace in a reporter
// abbreviation ("F. 3d" -> "F.3d") so the same reporter always produces
// the same normalized citation string.
func normalizeReporter(reporter string) string {
	return strings.Join(strings.Fields(reporter), "")
}
