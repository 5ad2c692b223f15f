// Package provenance defines the source-location record that every chunk
// in CaseTrack must carry. No chunk exists without one; no embedding
// exists without a chunk.
package provenance

import (
	"fmt"
	"time"
)

// ExtractionMethod records how the text behind a chunk was obtained.
type ExtractionMethod string

const (
	Native       ExtractionMethod = "native"
	OCR          ExtractionMethod = "ocr"
	Spreadsheet  ExtractionMethod = "spreadsheet"
	Email        ExtractionMethod = "email"
	Skipped      ExtractionMethod = "skipped"
)

// Record is the full source-location record attached to every chunk.
type Record struct {
	DocumentID       string           `json:"document_id"`
	DocumentName     string           `json:"document_name"`
	SourcePath       string           `json:"source_path"`
	Page             int              `json:"page"` // 1-indexed
	ParagraphStart   int              `json:"paragraph_start"`
	ParagraphEnd     int              `json:"paragraph_end"`
	LineStart        int              `json:"line_start"`
	LineEnd          int              `json:"line_end"`
	CharStart        int              `json:"char_start"` // offset from start of page, inclusive
	CharEnd          int              `json:"char_end"`   // exclusive
	SectionLabel     string           `json:"section_label,omitempty"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	OCRConfidence    *float64         `json:"ocr_confidence,omitempty"`
	ChunkSequence    int              `json:"chunk_sequence"`
	CreatedAt        time.Time        `json:"created_at"`
	EmbeddedAt       *time.Time       `json:"embedded_at,omitempty"`
}

// Validate enforces invariant 1 from spec §8: document_name non-empty,
// page >= 1, char_start < char_end.
func (r Record) Validate() error {
	if r.DocumentName == "" {
		return fmt.Errorf("provenance: document_name is empty")
	}
	if r.Page < 1 {
		return fmt.Errorf("provenance: page %d is less than 1", r.Page)
	}
	if r.CharStart >= r.CharEnd {
		return fmt.Errorf("provenance: char_start %d must be < char_end %d", r.CharStart, r.CharEnd)
	}
	if r.ParagraphStart > r.ParagraphEnd {
		return fmt.Errorf("provenance: paragraph_start %d must be <= paragraph_end %d", r.ParagraphStart, r.ParagraphEnd)
	}
	return nil
}

// Citation formats the provenance the way results are cited back to a
// caller, e.g. "Complaint.pdf, p. 8, para. 24, ll. 1-6".
func (r Record) Citation() string {
	lines := fmt.Sprintf("ll. %d-%d", r.LineStart, r.LineEnd)
	if r.LineStart == r.LineEnd {
		lines = fmt.Sprintf("l. %d", r.LineStart)
	}
	paras := fmt.Sprintf("paras. %d-%d", r.ParagraphStart, r.ParagraphEnd)
	if r.ParagraphStart == r.ParagraphEnd {
		paras = fmt.Sprintf("para. %d", r.ParagraphStart)
	}
	if r.SectionLabel != "" {
		return fmt.Sprintf("%s, %s, p. %d, %s, %s", r.DocumentName, r.SectionLabel, r.Page, paras, lines)
	}
	return fmt.Sprintf("%s, p. %d, %s, %s", r.DocumentName, r.Page, paras, lines)
}

// CitationLegal formats the provenance the way it would appear as a
// pinpoint cite in a brief, e.g. "Complaint.pdf at 8" or, with a section
// label, "Complaint.pdf, Section 2 at 8" — terser than Citation, which
// spells out paragraph and line ranges for internal review use.
func (r Record) CitationLegal() string {
	if r.SectionLabel != "" {
		return fmt.Sprintf("%s, %s at %d", r.DocumentName, r.SectionLabel, r.Page)
	}
	return fmt.Sprintf("%s at %d", r.DocumentName, r.Page)
}

// CitationShort formats the provenance as a bare page pin, e.g. "p. 8",
// for contexts where the document is already named elsewhere (a result
// list grouped by document, for instance) and repeating its name would
// just be noise.
func (r Record) CitationShort() string {
	return fmt.Sprintf("p. %d", r.Page)
}
