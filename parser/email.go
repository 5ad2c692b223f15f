package parser

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// EmailParser handles .eml message files: a header block (From/To/Date/
// Subject) as page 1, the body (HTML converted to markdown-flavoured
// text when the message is HTML) as page 2, and attachments returned in
// ParsedDocument.Attachments. Header and MIME-structure
// parsing use net/mail and mime/multipart directly: no example repo in
// the retrieval pack parses email byte structure, so this is the one
// place CaseTrack reaches for the standard library rather than a
// third-party dependency for the parsing concern itself; HTML body
// conversion still goes through the pack's html-to-markdown converter.
type EmailParser struct{}

func (p *EmailParser) SupportedFormats() []string { return []string{"eml"} }

func (p *EmailParser) Parse(ctx context.Context, path string) (*ParsedDocument, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening email: %w", err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, fmt.Errorf("parsing email headers: %w", err)
	}

	header := formatHeaderBlock(msg.Header)

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("reading email body: %w", err)
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)

	var bodyText string
	var attachments []Attachment

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		bodyText, attachments, err = parseMultipartBody(bodyBytes, params["boundary"])
		if err != nil {
			return nil, fmt.Errorf("parsing multipart email: %w", err)
		}
	case mediaType == "text/html":
		bodyText = htmlToText(string(bodyBytes))
	default:
		bodyText = string(bodyBytes)
	}

	pages := []Page{
		{Number: 1, Content: header, Paragraphs: []string{header}, ExtractionMethod: Email},
		{Number: 2, Content: bodyText, Paragraphs: splitParagraphs(bodyText), ExtractionMethod: Email},
	}

	return &ParsedDocument{
		Filename: baseFilename(path),
		Pages:    pages,
		Metadata: map[string]string{
			"from":    msg.Header.Get("From"),
			"to":      msg.Header.Get("To"),
			"date":    msg.Header.Get("Date"),
			"subject": msg.Header.Get("Subject"),
		},
		Attachments: attachments,
	}, nil
}

func formatHeaderBlock(h mail.Header) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", h.Get("From"))
	fmt.Fprintf(&b, "To: %s\n", h.Get("To"))
	fmt.Fprintf(&b, "Date: %s\n", h.Get("Date"))
	fmt.Fprintf(&b, "Subject: %s\n", h.Get("Subject"))
	return b.String()
}

func htmlToText(htmlContent string) string {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(htmlContent)
	if err != nil {
		return htmlContent
	}
	return out
}
