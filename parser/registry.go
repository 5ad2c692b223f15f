package parser

import "fmt"

// Registry dispatches a file extension to the parser that handles it,
// mirroring the teacher's format-registration pattern.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds the registry with every built-in format parser. ocr
// is the external recognize(image) -> (text, confidence) capability;
// passing nil disables OCR fallback for scanned PDF pages (pages with no
// native text are then left as Skipped pages rather than erroring the
// whole document; pages with sparse native text keep that text).
func NewRegistry(ocr OCRRecognizer) *Registry {
	r := &Registry{parsers: make(map[string]Parser)}

	pdfParser := &PDFParser{ocr: ocr}
	docxParser := &DOCXParser{}
	xlsxParser := &XLSXParser{}
	textParser := &TextParser{}
	emailParser := &EmailParser{}
	legacy := &LegacyParser{}

	for _, p := range []Parser{pdfParser, docxParser, xlsxParser, textParser, emailParser, legacy} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser registered for a format (the lowercase file
// extension without its leading dot).
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Register overrides or adds a format's parser, letting callers swap in
// an alternative implementation without rebuilding the whole registry.
func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}

// ErrUnsupportedFormat is returned by Get for a format with no registered
// parser — it maps to the unsupported-format error kind (spec §7).
var ErrUnsupportedFormat = fmt.Errorf("parser: unsupported format")
