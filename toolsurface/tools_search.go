package toolsurface

import "github.com/casetrack/casetrack/retrieval"

func init() {
	register(
		ToolDef{
			Name:        "search",
			Description: "Search a case's documents: citation fast path, BM25 lexical recall, and dense+sparse semantic fusion, with pre-formatted citations and provenance per result.",
			Schema: Schema{
				Required: []string{"query"},
				Allowed:  []string{"case_id", "query", "top_k", "document_ids", "expand_graph", "max_expansions"},
			},
			Handler: handleSearch,
		},
		ToolDef{
			Name:        "get_chunk",
			Description: "Fetch a single chunk by id, with its full provenance record.",
			Schema:      Schema{Required: []string{"chunk_id"}, Allowed: []string{"case_id", "chunk_id"}},
			Handler:     handleGetChunk,
		},
		ToolDef{
			Name:        "get_chunks_by_document",
			Description: "Fetch every chunk belonging to one document, in sequence order.",
			Schema:      Schema{Required: []string{"document_id"}, Allowed: []string{"case_id", "document_id"}},
			Handler:     handleGetChunksByDocument,
		},
	)
}

func handleSearch(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	opts := retrieval.Options{
		TopK:          intArg(fields, "top_k"),
		DocumentIDs:   stringSliceArg(fields, "document_ids"),
		ExpandGraph:   boolArg(fields, "expand_graph"),
		MaxExpansions: intArg(fields, "max_expansions"),
	}
	results, err := ic.handle.search.Search(ic.ctx, stringArg(fields, "query"), opts)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(results)
}

func handleGetChunk(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	c, found, err := ic.handle.store.GetChunk(ic.ctx, stringArg(fields, "chunk_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	if !found {
		return errorResult(tagged(KindNotFound, "chunk "+stringArg(fields, "chunk_id")))
	}
	return jsonResult(c)
}

func handleGetChunksByDocument(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	chunks, err := ic.handle.store.GetChunksByDocument(ic.ctx, stringArg(fields, "document_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(chunks)
}
