package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser maps each sheet to a page: row 1 is treated as the header
// and kept as the page's first paragraph, every subsequent row becomes
// its own "| cell | cell |" paragraph so row boundaries survive chunking.
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx", "xls"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*ParsedDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var pages []Page
	pageNum := 0

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		pageNum++
		paragraphs := make([]string, 0, len(rows))
		for _, row := range rows {
			paragraphs = append(paragraphs, "| "+strings.Join(row, " | ")+" |")
		}

		pages = append(pages, Page{
			Number:           pageNum,
			Content:          strings.Join(paragraphs, "\n"),
			Paragraphs:       paragraphs,
			ExtractionMethod: Spreadsheet,
		})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no data found in XLSX")
	}

	metadata := map[string]string{"sheet_count": fmt.Sprintf("%d", len(pages))}

	return &ParsedDocument{
		Filename: baseFilename(path),
		Pages:    pages,
		Metadata: metadata,
	}, nil
}
