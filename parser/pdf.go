package parser

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts page text natively, falling back to the OCR
// capability for pages whose native extraction looks scanned (spec §4.2
// step 2: alphanumeric ratio below 0.3).
type PDFParser struct {
	ocr OCRRecognizer
}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParsedDocument, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]Page, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := extractPageTextOrdered(page)
		if err != nil {
			pages = append(pages, Page{Number: i, ExtractionMethod: Skipped})
			continue
		}
		text = strings.TrimSpace(text)

		if text == "" || alphanumericRatio(text) < scannedPageThreshold {
			ocrPage, ok := p.tryOCR(ctx, path, i)
			if ok {
				pages = append(pages, ocrPage)
				continue
			}
			if text == "" {
				pages = append(pages, Page{Number: i, ExtractionMethod: Skipped})
				continue
			}
			// OCR unavailable: keep the (likely poor) native text rather
			// than dropping the page entirely.
		}

		pages = append(pages, Page{
			Number:           i,
			Content:          text,
			Paragraphs:       splitParagraphs(text),
			ExtractionMethod: Native,
		})
	}

	return &ParsedDocument{
		Filename: baseFilename(path),
		Pages:    pages,
		Metadata: map[string]string{"page_count": fmt.Sprintf("%d", totalPages)},
	}, nil
}

// tryOCR renders the page to an image and passes it to the configured
// OCR capability.
func (p *PDFParser) tryOCR(ctx context.Context, path string, pageNum int) (Page, bool) {
	if p.ocr == nil {
		return Page{}, false
	}
	image, ok := renderPageImage(path, pageNum)
	if !ok {
		return Page{}, false
	}
	text, confidence, err := p.ocr.Recognize(ctx, image)
	if err != nil || strings.TrimSpace(text) == "" {
		return Page{}, false
	}
	return Page{
		Number:           pageNum,
		Content:          text,
		Paragraphs:       splitParagraphs(text),
		ExtractionMethod: OCR,
		OCRConfidence:    &confidence,
	}, true
}

// extractPageTextOrdered extracts text from a PDF page with its lines
// sorted top-to-bottom; text within a line keeps content-stream order
// (it is not re-sorted left-to-right). The default GetPlainText reads
// text in PDF object order which can differ from visual layout — headings
// may appear after the body text they label.
//
// This function groups Content() elements into visual lines by Y proximity
// (preserving the content-stream order within each line — which GetPlainText
// relies on for correct character sequencing), then sorts the lines by Y so
// the result follows top-to-bottom reading order.
func extractPageTextOrdered(page pdf.Page) (string, error) {
	content := page.Content()
	if len(content.Text) == 0 {
		return page.GetPlainText(nil)
	}

	const lineTolerance = 3.0

	type visualLine struct {
		y   float64
		buf strings.Builder
	}

	var lines []*visualLine
	var cur *visualLine

	for _, t := range content.Text {
		if cur == nil || math.Abs(t.Y-cur.y) > lineTolerance {
			lines = append(lines, &visualLine{y: t.Y})
			cur = lines[len(lines)-1]
		}
		cur.buf.WriteString(t.S)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})

	var parts []string
	for _, l := range lines {
		text := strings.TrimSpace(l.buf.String())
		if text != "" {
			parts = append(parts, text)
		}
	}

	result := strings.Join(parts, "\n")
	if strings.TrimSpace(result) == "" {
		return page.GetPlainText(nil)
	}
	return result, nil
}
