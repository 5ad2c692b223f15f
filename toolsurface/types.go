// Package toolsurface exposes every CaseTrack operation as a single
// named, schema-validated tool invocation: one case-lifecycle roster,
// one ingestion roster, one search/retrieval roster, one
// entity/citation/graph navigation roster, and one watch-management
// roster, dispatched through a single entry point so a stdio or HTTP
// front end never needs to know the shape of any individual operation.
package toolsurface

import "encoding/json"

// ContentBlock is one unit of a tool result's content array. Only the
// text block type is produced today; the field shape mirrors the
// wider content-block convention so a future block kind (e.g. an
// embedded resource reference) slots in without changing callers.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is what Dispatch returns for every invocation, successful or
// not: a content array a caller can render directly, plus IsError so a
// caller can distinguish a real failure from a successful response
// that merely happens to describe an empty result set.
type Result struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// textResult wraps a single string as a successful one-block result.
func textResult(text string) Result {
	return Result{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// jsonResult marshals v as indented JSON and returns it as a single
// text block, the shape every non-trivial operation below returns.
func jsonResult(v interface{}) Result {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(TaggedError{Kind: KindInferenceFailed, Message: "encoding result: " + err.Error()})
	}
	return textResult(string(b))
}

// errorResult renders a TaggedError as the isError result shape.
func errorResult(te TaggedError) Result {
	return Result{Content: []ContentBlock{{Type: "text", Text: te.Message}}, IsError: true}
}

// Handler runs one tool operation against a Surface and its arguments,
// already validated and decoded into a plain field map by Dispatch.
type Handler func(ic invocationContext, fields map[string]interface{}) Result

// ToolDef is one named, independently documented and schema-validated
// operation in the tool surface, mirroring the teacher pack's
// name+description+schema+executor roster shape.
type ToolDef struct {
	Name        string
	Description string
	// Schema lists the required and the allowed argument names,
	// validated by validateArgs. It is not a general-purpose JSON
	// schema — only the subset toolsurface's
	// operations actually need (see schema.go).
	Schema  Schema
	Handler Handler
}

// Schema is the minimal argument contract one tool operation declares:
// which top-level fields are required, and which field names are
// recognized at all (anything else is rejected as an unknown argument,
// matching the pack's additionalProperties:false convention).
type Schema struct {
	Required []string
	Allowed  []string
}
