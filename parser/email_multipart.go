package parser

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"strings"
)

func openFile(path string) (*os.File, error) {
	return os.Open(path)
}

// parseMultipartBody walks a multipart MIME body, concatenating every
// text/plain and text/html part (HTML converted via htmlToText) into the
// message body, and collecting every part with a filename as an
// attachment.
func parseMultipartBody(body []byte, boundary string) (string, []Attachment, error) {
	if boundary == "" {
		return string(body), nil, nil
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)

	var text strings.Builder
	var attachments []Attachment

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("reading multipart part: %w", err)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return "", nil, fmt.Errorf("reading part body: %w", err)
		}

		filename := part.FileName()
		contentType := part.Header.Get("Content-Type")
		mediaType, params, _ := mime.ParseMediaType(contentType)

		switch {
		case filename != "":
			attachments = append(attachments, Attachment{Filename: filename, Data: data})
		case strings.HasPrefix(mediaType, "multipart/"):
			nestedText, nestedAttachments, err := parseMultipartBody(data, params["boundary"])
			if err != nil {
				return "", nil, err
			}
			text.WriteString(nestedText)
			text.WriteString("\n")
			attachments = append(attachments, nestedAttachments...)
		case mediaType == "text/html":
			text.WriteString(htmlToText(string(data)))
			text.WriteString("\n")
		default:
			text.Write(data)
			text.WriteString("\n")
		}
	}

	return strings.TrimSpace(text.String()), attachments, nil
}
