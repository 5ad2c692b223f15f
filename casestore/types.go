package casestore

import (
	"time"

	"github.com/casetrack/casetrack/provenance"
)

// DocumentType is a closed enum of ~21 legal document types.
type DocumentType string

const (
	DocContract         DocumentType = "contract"
	DocDeposition        DocumentType = "deposition"
	DocBrief             DocumentType = "brief"
	DocCourtOpinion      DocumentType = "court_opinion"
	DocStatute           DocumentType = "statute"
	DocCorrespondence    DocumentType = "correspondence"
	DocDiscovery         DocumentType = "discovery"
	DocPleading          DocumentType = "pleading"
	DocMotion            DocumentType = "motion"
	DocOrder             DocumentType = "order"
	DocJudgment          DocumentType = "judgment"
	DocSettlement        DocumentType = "settlement"
	DocExhibit           DocumentType = "exhibit"
	DocTranscript        DocumentType = "transcript"
	DocMemo              DocumentType = "memo"
	DocAffidavit         DocumentType = "affidavit"
	DocRegulation        DocumentType = "regulation"
	DocFiling            DocumentType = "filing"
	DocInvoice           DocumentType = "invoice"
	DocEmail             DocumentType = "email"
	DocDefault           DocumentType = "default"
)

// Document is a row in the documents column family.
type Document struct {
	ID               string       `json:"id"`
	Filename         string       `json:"filename"`
	SourcePath       string       `json:"source_path"`
	DocType          DocumentType `json:"doc_type"`
	PageCount        int          `json:"page_count"`
	ChunkCount       int          `json:"chunk_count"`
	ContentHash      string       `json:"content_hash"`
	ByteSize         int64        `json:"byte_size"`
	ExtractionMethod string       `json:"extraction_method"`
	EmbedderIDs      []string     `json:"embedder_ids"`
	EntityCount      int          `json:"entity_count"`
	CitationCount    int          `json:"citation_count"`
	Status           string       `json:"status"`
	IngestedAt       time.Time    `json:"ingested_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Chunk is a row in the chunks column family, keyed by id and also by
// (document_id, sequence).
type Chunk struct {
	ID          string             `json:"id"`
	DocumentID  string             `json:"document_id"`
	Sequence    int                `json:"sequence"`
	Text        string             `json:"text"`
	CharCount   int                `json:"char_count"`
	EmbedderIDs []string           `json:"embedder_ids"`
	Provenance  provenance.Record  `json:"provenance"`
}

// EmbeddingRecord is the unified embedding row keyed by chunk id. Dense,
// Sparse, and TokenMatrix are independently optional.
type EmbeddingRecord struct {
	ChunkID     string                  `json:"chunk_id"`
	Text        string                  `json:"text"`
	Provenance  provenance.Record       `json:"provenance"`
	Dense       []float32               `json:"dense,omitempty"`
	Sparse      *SparseVectorRecord     `json:"sparse,omitempty"`
	TokenMatrix [][]float32             `json:"token_matrix,omitempty"`
}

// SparseVectorRecord mirrors serialize.SparseVector without importing it
// into the public record shape, keeping casestore's type free of a
// serialization-detail dependency leak in JSON-facing code.
type SparseVectorRecord struct {
	Indices []uint32  `json:"indices"`
	Weights []float32 `json:"weights"`
}

// EntityType is a closed set of ~17 legal and general entity types.
type EntityType string

const (
	EntityParty       EntityType = "party"
	EntityCourt       EntityType = "court"
	EntityJudge       EntityType = "judge"
	EntityAttorney    EntityType = "attorney"
	EntityStatute     EntityType = "statute"
	EntityCaseNumber  EntityType = "case_number"
	EntityJurisdiction EntityType = "jurisdiction"
	EntityLegalConcept EntityType = "legal_concept"
	EntityRemedy      EntityType = "remedy"
	EntityWitness     EntityType = "witness"
	EntityExhibit     EntityType = "exhibit"
	EntityDocketEntry EntityType = "docket_entry"
	EntityPerson      EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityDate        EntityType = "date"
	EntityAmount      EntityType = "amount"
	EntityLocation    EntityType = "location"
)

// Entity is a canonical named entity tracked within a case.
type Entity struct {
	Type                 EntityType `json:"type"`
	NormalizedName       string     `json:"normalized_name"`
	CanonicalName        string     `json:"canonical_name"`
	Aliases              []string   `json:"aliases"`
	MentionCount         int        `json:"mention_count"`
	FirstSeenDocumentID   string     `json:"first_seen_document_id"`
	FirstSeenChunkID      string     `json:"first_seen_chunk_id"`
}

// EntityMention links an entity occurrence to its exact chunk location.
type EntityMention struct {
	EntityType     EntityType `json:"entity_type"`
	NormalizedName string     `json:"normalized_name"`
	ChunkID        string     `json:"chunk_id"`
	DocumentID     string     `json:"document_id"`
	CharStart      int        `json:"char_start"`
	CharEnd        int        `json:"char_end"`
	Context        string     `json:"context"`
}

// CitationType enumerates the Bluebook citation forms the extractor targets.
type CitationType string

const (
	CitationCaseLaw       CitationType = "case_law"
	CitationStatute       CitationType = "statute"
	CitationRegulation    CitationType = "regulation"
	CitationShortForm     CitationType = "short_form"
	CitationConstitution  CitationType = "constitution"
	CitationRule          CitationType = "rule"
	CitationTreaty        CitationType = "treaty"
)

// Citation is a parsed legal citation, canonicalised for cross-referencing.
type Citation struct {
	Normalized   string            `json:"normalized"`
	FullText     string            `json:"full_text"`
	Type         CitationType      `json:"type"`
	Fields       map[string]string `json:"fields"`
	MentionCount int               `json:"mention_count"`
}

// CitationMention links a citation occurrence to its chunk location.
type CitationMention struct {
	CitationNormalized string `json:"citation_normalized"`
	ChunkID            string `json:"chunk_id"`
	DocumentID         string `json:"document_id"`
	CharStart          int    `json:"char_start"`
	CharEnd            int    `json:"char_end"`
}

// DocEdgeType enumerates document-to-document relationship kinds.
type DocEdgeType string

const (
	DocEdgeSharedEntities   DocEdgeType = "shared_entities"
	DocEdgeSharedCitations  DocEdgeType = "shared_citations"
	DocEdgeSemanticSimilar  DocEdgeType = "semantic_similar"
	DocEdgeResponseTo       DocEdgeType = "response_to"
	DocEdgeAmends           DocEdgeType = "amends"
	DocEdgeAttachment       DocEdgeType = "attachment"
	DocEdgeVersionOf        DocEdgeType = "version_of"
)

// DocEdge is a typed document-to-document graph edge.
type DocEdge struct {
	DocA   string      `json:"doc_a"`
	DocB   string      `json:"doc_b"`
	Type   DocEdgeType `json:"type"`
	Weight float64     `json:"weight"`
}

// ChunkEdge is a similarity or co-reference edge between two chunks,
// stored only when Weight exceeds the 0.7 threshold.
type ChunkEdge struct {
	ChunkA string  `json:"chunk_a"`
	ChunkB string  `json:"chunk_b"`
	Weight float64 `json:"weight"`
	Type   string  `json:"type"` // "similar" or "coreference"
}

// CaseSummary is the derived, per-case rollup rebuilt after every
// ingestion or deletion.
type CaseSummary struct {
	KeyParties            []NamedCount      `json:"key_parties"`
	KeyDates              []string          `json:"key_dates"`
	TopTopics             []NamedCount      `json:"top_topics"`
	LegalIssues           []NamedCount      `json:"legal_issues"`
	MostCitedAuthorities  []NamedCount      `json:"most_cited_authorities"`
	DocumentCategoryCounts map[string]int   `json:"document_category_counts"`
	EntityTypeCounts       map[string]int   `json:"entity_type_counts"`
	TotalDocuments         int              `json:"total_documents"`
	TotalChunks            int              `json:"total_chunks"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// NamedCount pairs a label with an occurrence count, used throughout the
// case summary for top-N rollups.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
