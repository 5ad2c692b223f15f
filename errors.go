package casetrack

import (
	"github.com/casetrack/casetrack/parser"
	"github.com/casetrack/casetrack/registry"
	"github.com/casetrack/casetrack/toolsurface"
)

// Sentinel errors a library caller can match with errors.Is, re-exported
// from the packages that actually originate them so a consumer of the
// top-level Engine never has to import registry/parser directly.
var (
	// ErrNoActiveCase is returned when an operation needs a case id and
	// none was given and no case is set active.
	ErrNoActiveCase = registry.ErrNoActiveCase

	// ErrCaseNotFound is returned when a case id does not exist.
	ErrCaseNotFound = registry.ErrCaseNotFound

	// ErrSchemaVersionFuture is returned when a case's on-disk schema
	// version is newer than this build understands.
	ErrSchemaVersionFuture = registry.ErrSchemaVersionFuture

	// ErrSchemaVersionIncompatible is returned by ImportCase when an
	// archive's manifest schema version can't be opened by this build.
	ErrSchemaVersionIncompatible = registry.ErrSchemaVersionIncompatible

	// ErrUnsupportedFormat is returned for unrecognized document formats.
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat

	// ErrOCRUnavailable is returned when a scanned page needs OCR and no
	// recognizer was configured.
	ErrOCRUnavailable = parser.ErrOCRUnavailable
)

// Kind is the closed taxonomy of stable error-kind strings every tool
// operation's failure is tagged with (spec §7).
type Kind = toolsurface.Kind

const (
	KindNoActiveCase       = toolsurface.KindNoActiveCase
	KindNotFound           = toolsurface.KindNotFound
	KindFileNotFound       = toolsurface.KindFileNotFound
	KindUnsupportedFormat  = toolsurface.KindUnsupportedFormat
	KindDuplicateDocument  = toolsurface.KindDuplicateDocument
	KindParseFailed        = toolsurface.KindParseFailed
	KindOCRUnavailable     = toolsurface.KindOCRUnavailable
	KindOCRFailed          = toolsurface.KindOCRFailed
	KindEmbedderNotLoaded  = toolsurface.KindEmbedderNotLoaded
	KindModelNotDownloaded = toolsurface.KindModelNotDownloaded
	KindInferenceFailed    = toolsurface.KindInferenceFailed
	KindStorageOpenFailed  = toolsurface.KindStorageOpenFailed
	KindStorageWriteFailed = toolsurface.KindStorageWriteFailed
	KindSchemaVersionFuture = toolsurface.KindSchemaVersionFuture
	KindTierLimitExceeded  = toolsurface.KindTierLimitExceeded
	KindCancelled          = toolsurface.KindCancelled
	KindInvalidArgument    = toolsurface.KindInvalidArgument
)

// TaggedError carries a stable Kind alongside its message, the shape
// every Dispatch isError result's text is built from.
type TaggedError = toolsurface.TaggedError
