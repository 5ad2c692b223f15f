package graph

import "github.com/casetrack/casetrack/casestore"

// chunkExtraction bundles one chunk's deterministic entity and citation
// extraction results before they are written to the store, so Build can
// log per-chunk counts the same way the teacher's LLM-driven extractor
// logged entity/relationship counts per chunk.
type chunkExtraction struct {
	chunkID        string
	documentID     string
	entityMentions []casestore.EntityMention
	citations      []citationMatch
}
