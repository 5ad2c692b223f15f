package toolsurface

import (
	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/graph"
)

func init() {
	register(
		ToolDef{
			Name:        "list_entities",
			Description: "List every canonical entity of one type tracked in a case (party, judge, statute, jurisdiction, and the rest of the closed entity-type set).",
			Schema:      Schema{Required: []string{"entity_type"}, Allowed: []string{"case_id", "entity_type"}},
			Handler:     handleListEntities,
		},
		ToolDef{
			Name:        "get_entity",
			Description: "Fetch one canonical entity by type and normalized name, including its aliases and first-seen location.",
			Schema:      Schema{Required: []string{"entity_type", "normalized_name"}, Allowed: []string{"case_id", "entity_type", "normalized_name"}},
			Handler:     handleGetEntity,
		},
		ToolDef{
			Name:        "get_citation",
			Description: "Fetch one canonical legal citation by its normalized form.",
			Schema:      Schema{Required: []string{"normalized"}, Allowed: []string{"case_id", "normalized"}},
			Handler:     handleGetCitation,
		},
		ToolDef{
			Name:        "most_cited_authorities",
			Description: "Rank the case's citations by how many chunks mention them.",
			Schema:      Schema{Allowed: []string{"case_id", "limit"}},
			Handler:     handleMostCitedAuthorities,
		},
		ToolDef{
			Name:        "documents_sharing_citations",
			Description: "Find every other document in the case that cites at least one authority this document also cites, with the shared-citation count.",
			Schema:      Schema{Required: []string{"document_id"}, Allowed: []string{"case_id", "document_id"}},
			Handler:     handleDocumentsSharingCitations,
		},
		ToolDef{
			Name:        "documents_sharing_entities",
			Description: "Find every other document in the case that mentions at least one entity this document also mentions, with the shared-entity count.",
			Schema:      Schema{Required: []string{"document_id"}, Allowed: []string{"case_id", "document_id"}},
			Handler:     handleDocumentsSharingEntities,
		},
		ToolDef{
			Name:        "expand_from_chunk",
			Description: "Widen a result chunk through its co-mentioned entities: every other chunk sharing at least one entity, ranked by combined edge weight.",
			Schema:      Schema{Required: []string{"chunk_id"}, Allowed: []string{"case_id", "chunk_id", "max_expansions"}},
			Handler:     handleExpandFromChunk,
		},
		ToolDef{
			Name:        "detect_document_clusters",
			Description: "Group the case's documents into relatedness clusters via their shared entity and citation graph.",
			Schema:      Schema{Allowed: []string{"case_id"}},
			Handler:     handleDetectDocumentClusters,
		},
		ToolDef{
			Name:        "get_case_summary",
			Description: "Return the case's cached rollup: key parties, dates, topics, legal issues, most-cited authorities, and per-type counts.",
			Schema:      Schema{Allowed: []string{"case_id"}},
			Handler:     handleGetCaseSummary,
		},
		ToolDef{
			Name:        "rebuild_case_summary",
			Description: "Recompute the case summary rollup from current documents, entities, and citations.",
			Schema:      Schema{Allowed: []string{"case_id"}},
			Handler:     handleRebuildCaseSummary,
		},
		ToolDef{
			Name:        "get_query_log",
			Description: "List the case's most recent search invocations with result counts and per-stage timings, for operator diagnostics.",
			Schema:      Schema{Allowed: []string{"case_id", "limit"}},
			Handler:     handleGetQueryLog,
		},
	)
}

func handleListEntities(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	entities, err := ic.handle.store.ListEntitiesByType(ic.ctx, casestore.EntityType(stringArg(fields, "entity_type")))
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(entities)
}

func handleGetEntity(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	e, found, err := ic.handle.store.GetEntity(ic.ctx,
		casestore.EntityType(stringArg(fields, "entity_type")), stringArg(fields, "normalized_name"))
	if err != nil {
		return errorResult(mapError(err))
	}
	if !found {
		return errorResult(tagged(KindNotFound, "entity "+stringArg(fields, "normalized_name")))
	}
	return jsonResult(e)
}

func handleGetCitation(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	c, found, err := ic.handle.store.GetCitation(ic.ctx, stringArg(fields, "normalized"))
	if err != nil {
		return errorResult(mapError(err))
	}
	if !found {
		return errorResult(tagged(KindNotFound, "citation "+stringArg(fields, "normalized")))
	}
	return jsonResult(c)
}

func handleMostCitedAuthorities(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	limit := intArg(fields, "limit")
	if limit <= 0 {
		limit = 10
	}
	cites, err := ic.handle.store.MostCitedAuthorities(ic.ctx, limit)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(cites)
}

func handleDocumentsSharingCitations(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	shared, err := ic.handle.store.DocumentsSharingCitations(ic.ctx, stringArg(fields, "document_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(shared)
}

func handleDocumentsSharingEntities(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	shared, err := ic.handle.store.DocumentsSharingEntities(ic.ctx, stringArg(fields, "document_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(shared)
}

func handleExpandFromChunk(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	maxExpansions := intArg(fields, "max_expansions")
	if maxExpansions <= 0 {
		maxExpansions = 5
	}
	expanded, err := graph.ExpandFromChunk(ic.ctx, ic.handle.store, stringArg(fields, "chunk_id"), maxExpansions)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(expanded)
}

func handleDetectDocumentClusters(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	clusters, err := graph.DetectDocumentClusters(ic.ctx, ic.handle.store)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(clusters)
}

func handleGetCaseSummary(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	summary, err := ic.handle.store.GetCaseSummary(ic.ctx)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(summary)
}

func handleRebuildCaseSummary(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	summary, err := ic.handle.store.RebuildCaseSummary(ic.ctx)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(summary)
}

func handleGetQueryLog(ic invocationContext, fields map[string]interface{}) Result {
	ic, err := ic.withCase(fields)
	if err != nil {
		return errorResult(mapError(err))
	}
	entries, err := ic.handle.store.ListQueryLog(ic.ctx, intArg(fields, "limit"))
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(entries)
}
