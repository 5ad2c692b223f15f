package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextParser handles plain text (.txt) files as a single page, one
// paragraph per blank-line-delimited block.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}
	content := string(data)

	return &ParsedDocument{
		Filename: baseFilename(path),
		Pages: []Page{{
			Number:           1,
			Content:          content,
			Paragraphs:       splitParagraphs(content),
			ExtractionMethod: Native,
		}},
		Metadata: map[string]string{},
	}, nil
}

// splitParagraphs breaks text on blank lines, trimming each paragraph and
// dropping empty ones. Shared by the text and email parsers.
func splitParagraphs(content string) []string {
	blocks := strings.Split(content, "\n\n")
	var out []string
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	if len(out) == 0 && strings.TrimSpace(content) != "" {
		out = append(out, strings.TrimSpace(content))
	}
	return out
}
