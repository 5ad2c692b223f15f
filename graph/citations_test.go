package graph

import (
	"testing"

	"github.com/casetrack/casetrack/casestore"
)

func TestExtractCitationsCaseLaw(t *testing.T) {
	text := "The court relied on Smith v. Jones, 410 U.S. 113, 120 (S. Ct. 1973) for the standard."
	matches, last := ExtractCitations(text, "")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.citation.Type != casestore.CitationCaseLaw {
		t.Errorf("Type = %v, want case_law", m.citation.Type)
	}
	want := "Smith v. Jones, 410 U.S. 113 (S. Ct. 1973)"
	if m.citation.Normalized != want {
		t.Errorf("Normalized = %q, want %q", m.citation.Normalized, want)
	}
	if last != m.citation.Normalized {
		t.Errorf("lastFullCitation = %q, want %q", last, m.citation.Normalized)
	}
	if m.citation.Fields["pincite"] != "120" {
		t.Errorf("pincite = %q, want 120", m.citation.Fields["pincite"])
	}
}

func TestExtractCitationsStatute(t *testing.T) {
	matches, last := ExtractCitations("A claim under 42 U.S.C. § 1983 was asserted.", "")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].citation.Normalized != "42 U.S.C. § 1983" {
		t.Errorf("Normalized = %q", matches[0].citation.Normalized)
	}
	if matches[0].citation.Type != casestore.CitationStatute {
		t.Errorf("Type = %v, want statute", matches[0].citation.Type)
	}
	if last != "42 U.S.C. § 1983" {
		t.Errorf("lastFullCitation = %q", last)
	}
}

func TestExtractCitationsRegulation(t *testing.T) {
	matches, _ := ExtractCitations("See 29 C.F.R. § 1630.2 for the definition.", "")
	if len(matches) != 1 || matches[0].citation.Type != casestore.CitationRegulation {
		t.Fatalf("got %+v", matches)
	}
	if matches[0].citation.Normalized != "29 C.F.R. § 1630.2" {
		t.Errorf("Normalized = %q", matches[0].citation.Normalized)
	}
}

func TestExtractCitationsConstitution(t *testing.T) {
	matches, _ := ExtractCitations("This implicates U.S. Const. amend. XIV, § 1.", "")
	if len(matches) != 1 || matches[0].citation.Type != casestore.CitationConstitution {
		t.Fatalf("got %+v", matches)
	}
	want := "U.S. Const. amend. XIV, § 1"
	if matches[0].citation.Normalized != want {
		t.Errorf("Normalized = %q, want %q", matches[0].citation.Normalized, want)
	}
}

func TestExtractCitationsRule(t *testing.T) {
	matches, _ := ExtractCitations("Under Fed. R. Civ. P. 12(b)(6), dismissal is proper.", "")
	if len(matches) != 1 || matches[0].citation.Type != casestore.CitationRule {
		t.Fatalf("got %+v", matches)
	}
	if matches[0].citation.Normalized != "Fed. R. Civ. P. 12(b)(6)" {
		t.Errorf("Normalized = %q", matches[0].citation.Normalized)
	}
}

func TestExtractCitationsShortFormResolvesAgainstPriorCitation(t *testing.T) {
	prior := "Smith v. Jones, 410 U.S. 113 (S. Ct. 1973)"
	matches, last := ExtractCitations("Id. at 115 further supports this.", prior)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].citation.Type != casestore.CitationShortForm {
		t.Errorf("Type = %v, want short_form", matches[0].citation.Type)
	}
	if matches[0].citation.Normalized != prior {
		t.Errorf("Normalized = %q, want %q", matches[0].citation.Normalized, prior)
	}
	if matches[0].citation.Fields["pincite"] != "115" {
		t.Errorf("pincite = %q, want 115", matches[0].citation.Fields["pincite"])
	}
	if last != prior {
		t.Errorf("lastFullCitation should remain unchanged by a short form, got %q", last)
	}
}

func TestExtractCitationsShortFormWithoutPriorIsIgnored(t *testing.T) {
	matches, _ := ExtractCitations("Id. at 12 is cited without context.", "")
	if len(matches) != 0 {
		t.Errorf("expected no resolvable short form, got %+v", matches)
	}
}

func TestExtractCitationsEmptyText(t *testing.T) {
	matches, last := ExtractCitations("", "")
	if matches != nil || last != "" {
		t.Errorf("expected no matches for empty text, got %+v, %q", matches, last)
	}
}
