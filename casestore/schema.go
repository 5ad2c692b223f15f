package casestore

import "fmt"

// schemaSQL returns the DDL for the column families of a single
// case database. Column families are implemented as SQLite tables (plus,
// for embeddings, a vec0 virtual table for approximate nearest-neighbour
// search); table boundaries are the load-bearing prefix-scan boundaries
// the spec calls out, since each case already gets its own database file
// and is therefore physically isolated from every other case.
func schemaSQL(denseDim int) string {
	return fmt.Sprintf(`
-- documents: doc:{uuid}
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    source_path TEXT NOT NULL,
    doc_type TEXT NOT NULL,
    page_count INTEGER NOT NULL DEFAULT 0,
    chunk_count INTEGER NOT NULL DEFAULT 0,
    content_hash TEXT NOT NULL,
    byte_size INTEGER NOT NULL DEFAULT 0,
    extraction_method TEXT NOT NULL,
    embedder_ids TEXT NOT NULL DEFAULT '[]',
    entity_count INTEGER NOT NULL DEFAULT 0,
    citation_count INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'ingested',
    ingested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(source_path);

-- chunks: chunk:{uuid}; doc_chunks:{doc}:{seq:06}
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    sequence INTEGER NOT NULL,
    text TEXT NOT NULL,
    char_count INTEGER NOT NULL,
    embedder_ids TEXT NOT NULL DEFAULT '[]',
    provenance TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_doc_chunks ON chunks(document_id, sequence);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

-- embeddings: emb:{chunk}
CREATE TABLE IF NOT EXISTS embeddings (
    chunk_id TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    provenance TEXT NOT NULL,
    dense BLOB,
    sparse BLOB,
    token_matrix BLOB
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id TEXT PRIMARY KEY,
    embedding float[%d]
);

-- bm25_index: term:{token}; doc_len:{doc}; stats
CREATE TABLE IF NOT EXISTS bm25_postings (
    term TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    document_id TEXT NOT NULL,
    term_freq INTEGER NOT NULL,
    PRIMARY KEY (term, chunk_id)
);
CREATE INDEX IF NOT EXISTS idx_bm25_postings_term ON bm25_postings(term);
CREATE INDEX IF NOT EXISTS idx_bm25_postings_doc ON bm25_postings(document_id);

CREATE TABLE IF NOT EXISTS bm25_doc_len (
    document_id TEXT PRIMARY KEY,
    length INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bm25_stats (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total_chunks INTEGER NOT NULL DEFAULT 0,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    avg_doc_len REAL NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO bm25_stats (id, total_chunks, total_tokens, avg_doc_len) VALUES (1, 0, 0, 0);

-- metadata: free-form per-case key/value (case record mirror, cached stats)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- citations: cite:{normalized}
CREATE TABLE IF NOT EXISTS citations (
    normalized TEXT PRIMARY KEY,
    full_text TEXT NOT NULL,
    citation_type TEXT NOT NULL,
    fields TEXT NOT NULL DEFAULT '{}',
    mention_count INTEGER NOT NULL DEFAULT 0
);

-- citation_index: mentions of a citation within chunks
CREATE TABLE IF NOT EXISTS citation_mentions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    citation_normalized TEXT NOT NULL REFERENCES citations(normalized) ON DELETE CASCADE,
    chunk_id TEXT NOT NULL,
    document_id TEXT NOT NULL,
    char_start INTEGER NOT NULL,
    char_end INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_citation_mentions_citation ON citation_mentions(citation_normalized);
CREATE INDEX IF NOT EXISTS idx_citation_mentions_chunk ON citation_mentions(chunk_id);

-- citation_graph: citation -> chunk treatment edges (citing frequency, short-form resolution)
CREATE TABLE IF NOT EXISTS citation_edges (
    citation_normalized TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    PRIMARY KEY (citation_normalized, chunk_id)
);

-- entities: entity:{type}:{normalized}
CREATE TABLE IF NOT EXISTS entities (
    entity_type TEXT NOT NULL,
    normalized_name TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    aliases TEXT NOT NULL DEFAULT '[]',
    mention_count INTEGER NOT NULL DEFAULT 0,
    first_seen_document_id TEXT,
    first_seen_chunk_id TEXT,
    PRIMARY KEY (entity_type, normalized_name)
);

-- entity_index: ent_chunks:{entity_key}; chunk_ents:{chunk} (bidirectional)
CREATE TABLE IF NOT EXISTS entity_mentions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    normalized_name TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    document_id TEXT NOT NULL,
    char_start INTEGER NOT NULL,
    char_end INTEGER NOT NULL,
    context TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entity_mentions_entity ON entity_mentions(entity_type, normalized_name);
CREATE INDEX IF NOT EXISTS idx_entity_mentions_chunk ON entity_mentions(chunk_id);

-- references: short-form citation resolution records
CREATE TABLE IF NOT EXISTS short_form_references (
    chunk_id TEXT NOT NULL,
    short_form_text TEXT NOT NULL,
    resolved_citation TEXT,
    PRIMARY KEY (chunk_id, short_form_text)
);

-- doc_graph: doc_sim:{a}:{b}; doc_refs:{src}:{tgt}
CREATE TABLE IF NOT EXISTS doc_edges (
    doc_a TEXT NOT NULL,
    doc_b TEXT NOT NULL,
    edge_type TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (doc_a, doc_b, edge_type)
);
CREATE INDEX IF NOT EXISTS idx_doc_edges_a ON doc_edges(doc_a);
CREATE INDEX IF NOT EXISTS idx_doc_edges_b ON doc_edges(doc_b);

-- chunk_graph: chunk_sim:{a}:{b}, stored only when similarity > 0.7
CREATE TABLE IF NOT EXISTS chunk_edges (
    chunk_a TEXT NOT NULL,
    chunk_b TEXT NOT NULL,
    weight REAL NOT NULL,
    edge_type TEXT NOT NULL DEFAULT 'similar',
    PRIMARY KEY (chunk_a, chunk_b)
);

-- knowledge_graph: flat, typed edge union for uniform prefix-scan traversal
-- across entity->chunk, citation->chunk, doc->doc and chunk->chunk edges.
CREATE TABLE IF NOT EXISTS knowledge_graph_edges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    src TEXT NOT NULL,
    dst TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0
);
CREATE INDEX IF NOT EXISTS idx_kg_edges_src ON knowledge_graph_edges(kind, src);
CREATE INDEX IF NOT EXISTS idx_kg_edges_dst ON knowledge_graph_edges(kind, dst);

-- case_map: the derived, rebuild-after-every-mutation case summary
CREATE TABLE IF NOT EXISTS case_map (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- query_log: one row per search invocation, for operator diagnostics
CREATE TABLE IF NOT EXISTS query_log (
    id TEXT PRIMARY KEY,
    query_text TEXT NOT NULL,
    result_count INTEGER NOT NULL DEFAULT 0,
    stage_timings TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_query_log_created ON query_log(created_at);
`, denseDim)
}
