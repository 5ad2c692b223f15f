package toolsurface

import "github.com/casetrack/casetrack/ingest"

func init() {
	register(
		ToolDef{
			Name:        "ingest_document",
			Description: "Ingest a single file into a case: parse, chunk, embed, and extract its knowledge graph.",
			Schema: Schema{
				Required: []string{"path"},
				Allowed:  []string{"case_id", "path", "force", "skip_graph"},
			},
			Handler: handleIngestDocument,
		},
		ToolDef{
			Name:        "get_document",
			Description: "Fetch one document's metadata by id.",
			Schema:      Schema{Required: []string{"document_id"}, Allowed: []string{"case_id", "document_id"}},
			Handler:     handleGetDocument,
		},
		ToolDef{
			Name:        "list_documents",
			Description: "List every document in a case.",
			Schema:      Schema{Allowed: []string{"case_id"}},
			Handler:     handleListDocuments,
		},
		ToolDef{
			Name:        "delete_document",
			Description: "Delete a document and every chunk, embedding, and graph edge derived from it.",
			Schema:      Schema{Required: []string{"document_id"}, Allowed: []string{"case_id", "document_id"}},
			Handler:     handleDeleteDocument,
		},
	)
}

func handleIngestDocument(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	res, err := ic.handle.ingest.Ingest(ic.ctx, stringArg(fields, "path"), ingest.Options{
		Force:     boolArg(fields, "force"),
		SkipGraph: boolArg(fields, "skip_graph"),
	})
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(res)
}

func handleGetDocument(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	doc, found, err := ic.handle.store.GetDocument(ic.ctx, stringArg(fields, "document_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	if !found {
		return errorResult(tagged(KindNotFound, "document "+stringArg(fields, "document_id")))
	}
	return jsonResult(doc)
}

func handleListDocuments(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	docs, err := ic.handle.store.ListDocuments(ic.ctx)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(docs)
}

func handleDeleteDocument(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	id := stringArg(fields, "document_id")
	if err := ic.handle.store.DeleteDocument(ic.ctx, id); err != nil {
		return errorResult(mapError(err))
	}
	if _, err := ic.handle.store.RebuildCaseSummary(ic.ctx); err != nil {
		ic.sfc.logger.Warn("toolsurface: rebuilding case summary after delete", "error", err)
	}
	return textResult("document " + id + " deleted")
}
