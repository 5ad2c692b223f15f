package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/casetrack/casetrack/parser"
)

// maxSizeWarningBytes is the >100 MB threshold spec §4.2 step 1 names for
// a size warning (ingestion proceeds regardless; this only logs).
const maxSizeWarningBytes = 100 * 1024 * 1024

// magicSignatures maps a file extension to the byte signature its format
// is expected to start with. Only container formats with a stable magic
// number are checked; plain-text formats (txt, eml) have none.
var magicSignatures = map[string][]byte{
	"pdf":  []byte("%PDF"),
	"docx": {0x50, 0x4B, 0x03, 0x04}, // PK.. (zip container)
	"xlsx": {0x50, 0x4B, 0x03, 0x04},
	"doc":  {0xD0, 0xCF, 0x11, 0xE0}, // OLE2 compound file
	"ppt":  {0xD0, 0xCF, 0x11, 0xE0},
}

// validateFile performs step 1: existence/readability, a size warning,
// content hashing, and an extension-vs-magic-bytes sanity check. It
// never rejects on a magic-byte mismatch — only logs a warning — since
// the parser registry already dispatches by extension and a mismatch
// more often means a mislabeled file than an unparsable one.
func validateFile(path string) (hash string, size int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("ingest: %s: %w", path, err)
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("ingest: %s is a directory, not a file", path)
	}
	if info.Size() > maxSizeWarningBytes {
		slog.Warn("ingest: file exceeds 100 MB", "file", path, "bytes", info.Size())
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if sig, ok := magicSignatures[ext]; ok {
		if err := checkMagicBytes(path, sig); err != nil {
			slog.Warn("ingest: magic byte mismatch", "file", path, "extension", ext, "error", err)
		}
	}

	hash, err = parser.HashFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("ingest: %w", err)
	}
	return hash, info.Size(), nil
}

func checkMagicBytes(path string, want []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, len(want))
	n, err := f.Read(buf)
	if err != nil || n < len(want) {
		return fmt.Errorf("file too short to contain expected signature")
	}
	if !bytes.Equal(buf, want) {
		return fmt.Errorf("expected signature %x, got %x", want, buf)
	}
	return nil
}
