package toolsurface

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/casetrack/casetrack/parser"
	"github.com/casetrack/casetrack/registry"
)

// Kind is one of the closed set of stable error kinds every tool
// operation's failure is normalized to. Callers branch on Kind, never on
// a message string, so wording can change freely.
type Kind string

const (
	KindNoActiveCase          Kind = "no-active-case"
	KindNotFound              Kind = "not-found"
	KindFileNotFound          Kind = "file-not-found"
	KindUnsupportedFormat     Kind = "unsupported-format"
	KindDuplicateDocument     Kind = "duplicate-document"
	KindParseFailed           Kind = "parse-failed"
	KindOCRUnavailable        Kind = "ocr-unavailable"
	KindOCRFailed             Kind = "ocr-failed"
	KindEmbedderNotLoaded     Kind = "embedder-not-loaded"
	KindModelNotDownloaded    Kind = "model-not-downloaded"
	KindInferenceFailed       Kind = "inference-failed"
	KindStorageOpenFailed     Kind = "storage-open-failed"
	KindStorageWriteFailed    Kind = "storage-write-failed"
	KindSchemaVersionFuture   Kind = "schema-version-future"
	KindTierLimitExceeded     Kind = "tier-limit-exceeded"
	KindCancelled             Kind = "cancelled"
	KindInvalidArgument       Kind = "invalid-argument"
)

// TaggedError is a Kind paired with a corrective, human-readable
// message — the shape every tool operation's error result renders.
type TaggedError struct {
	Kind    Kind
	Message string
}

func (e TaggedError) Error() string { return e.Message }

// tagged builds a TaggedError with a kind-appropriate corrective
// message, following the pack's convention that an error kind carries a
// fixed corrective action a caller can act on without inspecting the
// underlying cause.
func tagged(kind Kind, detail string) TaggedError {
	var prefix string
	switch kind {
	case KindNoActiveCase:
		prefix = "no case is active; call set_active_case or create_case first"
	case KindNotFound:
		prefix = "the requested item does not exist in this case"
	case KindFileNotFound:
		prefix = "the source file could not be found on disk"
	case KindUnsupportedFormat:
		prefix = "this file format is not supported for ingestion"
	case KindDuplicateDocument:
		prefix = "a document with identical content is already in this case"
	case KindParseFailed:
		prefix = "the document could not be parsed"
	case KindOCRUnavailable:
		prefix = "this document needs OCR but no OCR capability is configured"
	case KindOCRFailed:
		prefix = "OCR failed on one or more pages"
	case KindEmbedderNotLoaded:
		prefix = "the requested embedding capability is not configured for this installation"
	case KindModelNotDownloaded:
		prefix = "the embedding model is not available locally"
	case KindInferenceFailed:
		prefix = "embedding inference failed"
	case KindStorageOpenFailed:
		prefix = "the case database could not be opened"
	case KindStorageWriteFailed:
		prefix = "the case database could not be written to"
	case KindSchemaVersionFuture:
		prefix = "this case was created by a newer version of casetrack and cannot be opened"
	case KindTierLimitExceeded:
		prefix = "this operation exceeds the configured tier limit"
	case KindCancelled:
		prefix = "the operation was cancelled"
	case KindInvalidArgument:
		prefix = "the arguments for this operation are invalid"
	default:
		prefix = "the operation failed"
	}
	if detail == "" {
		return TaggedError{Kind: kind, Message: prefix}
	}
	return TaggedError{Kind: kind, Message: fmt.Sprintf("%s: %s", prefix, detail)}
}

// mapError translates a sentinel or wrapped error surfaced by registry,
// ingest, parser, or embedding into a TaggedError. Anything unrecognized
// falls back to the catch-all storage-write-failed kind, since every
// handler in this package only calls into code whose own failures are
// ultimately a storage or inference problem once validation has already
// passed.
func mapError(err error) TaggedError {
	if err == nil {
		return TaggedError{}
	}
	var te TaggedError
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(err, registry.ErrNoActiveCase):
		return tagged(KindNoActiveCase, "")
	case errors.Is(err, registry.ErrCaseNotFound):
		return tagged(KindNotFound, err.Error())
	case errors.Is(err, registry.ErrSchemaVersionFuture):
		return tagged(KindSchemaVersionFuture, err.Error())
	case errors.Is(err, registry.ErrSchemaVersionIncompatible):
		return tagged(KindSchemaVersionFuture, err.Error())
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return tagged(KindUnsupportedFormat, err.Error())
	case errors.Is(err, parser.ErrOCRUnavailable):
		return tagged(KindOCRUnavailable, "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return tagged(KindCancelled, "")
	}

	msg := err.Error()
	switch {
	case os.IsNotExist(err) || strings.Contains(msg, "no such file or directory"):
		return tagged(KindFileNotFound, msg)
	case strings.Contains(msg, "capability not configured"):
		return tagged(KindEmbedderNotLoaded, msg)
	default:
		return tagged(KindStorageWriteFailed, msg)
	}
}
