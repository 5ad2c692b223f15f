// Package parser turns a raw document file into a ParsedDocument: paged
// text, its extraction method, and any attachments extracted from it.
// Each format's actual byte-level parsing is an external
// capability — ledongthuc/pdf, excelize, and this package's own
// archive/zip-backed OOXML reader are the concrete implementations of
// parse(path) -> ParsedDocument that the parsing concern is consumed
// through; OCR (for scanned PDF pages) is consumed as a separate
// recognize(image) -> (text, confidence) capability this package calls
// but does not implement.
package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExtractionMethod records how a page's text was obtained.
type ExtractionMethod string

const (
	Native      ExtractionMethod = "native"
	OCR         ExtractionMethod = "ocr"
	Spreadsheet ExtractionMethod = "spreadsheet"
	Email       ExtractionMethod = "email"
	Skipped     ExtractionMethod = "skipped"
)

// Page is a single page (or sheet, or email body/header block) of a
// parsed document.
type Page struct {
	Number           int
	Content          string
	Paragraphs       []string
	ExtractionMethod ExtractionMethod
	OCRConfidence    *float64
}

// Attachment is a file embedded in or attached to a parsed document (an
// email attachment, an OLE-embedded object), returned on ParsedDocument.
// The ingestion pipeline does not ingest attachments as documents or
// link them to the parent.
type Attachment struct {
	Filename string
	Data     []byte
	ParentID string
}

// ParsedDocument is what every format parser produces.
type ParsedDocument struct {
	ID          string
	Filename    string
	Pages       []Page
	Metadata    map[string]string
	ContentHash string
	Attachments []Attachment
}

// FullText concatenates every page's content, used by downstream steps
// (classification keyword matching) that want the whole document as a
// single string rather than page-by-page.
func (d ParsedDocument) FullText() string {
	var b strings.Builder
	for i, p := range d.Pages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Content)
	}
	return b.String()
}

// Parser parses one document format into a ParsedDocument.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParsedDocument, error)
	SupportedFormats() []string
}

// HashFile computes the content hash used for ingestion idempotence
// (spec §4.2 step 1: duplicate detection by matching content hash).
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hashing file: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// baseFilename strips the directory, kept as a helper since several
// parsers need just the display name for Metadata/Filename.
func baseFilename(path string) string {
	return filepath.Base(path)
}

// alphanumericRatio is the OCR trigger check from spec §4.2 step 2: PDF
// parsing tries native text first, and a page whose extracted text falls
// below a 0.3 alphanumeric-character ratio is declared scanned. Harvested
// from the teacher's PDF complexity scoring, narrowed to just this ratio.
func alphanumericRatio(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var alnum int
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			alnum++
		}
	}
	return float64(alnum) / float64(len([]rune(s)))
}

const scannedPageThreshold = 0.3
