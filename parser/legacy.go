package parser

import (
	"context"
	"fmt"
)

// LegacyParser rejects the pre-XML Office binary formats (.doc, .ppt)
// with the unsupported-format error kind. CaseTrack's supported formats
// are PDF, OOXML word processor/spreadsheet documents, email, and
// scanned images; the legacy binary formats are out of scope rather than
// routed to a paid external conversion service. Legacy .xls is not
// included here: excelize reads the old BIFF format too, so XLSXParser
// already handles it.
type LegacyParser struct{}

func (p *LegacyParser) SupportedFormats() []string { return []string{"doc", "ppt"} }

func (p *LegacyParser) Parse(ctx context.Context, path string) (*ParsedDocument, error) {
	return nil, fmt.Errorf("%w: legacy Office binary format", ErrUnsupportedFormat)
}
