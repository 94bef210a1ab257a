// Package model defines the domain types for the question-answering API.
package model

// PassageMetadata carries the semantic attributes stored alongside each
// indexed passage. Fields mirror the payload written at index time; optional
// fields are zero-valued when the payload omits them.
type PassageMetadata struct {
	Title            string            `json:"pdf_title"`
	URL              string            `json:"pdf_url,omitempty"`
	Collection       string            `json:"source"`
	Date             string            `json:"date,omitempty"`
	ChunkIndex       int               `json:"chunk_index"`
	TotalChunks      int               `json:"total_chunks"`
	DocumentType     string            `json:"document_type,omitempty"`
	ResolutionNumber string            `json:"resolution_number,omitempty"`
	PageNumber       int               `json:"page_number,omitempty"`
	PageConfidence   string            `json:"page_confidence,omitempty"` // "estimated", "verified", or empty
	Extra            map[string]string `json:"-"`
}

// Candidate is a passage annotated with its per-query similarity score and
// retrieval provenance. Created fresh for each query, never persisted.
type Candidate struct {
	ID         string
	Text       string
	Vector     []float32
	Score      float64
	Collection string
	Meta       PassageMetadata
}

// Reference is a candidate selected into the final presentation order.
// Slice position is the basis for citation numbering: reference i is cited
// as [i+1] in the generated answer.
type Reference struct {
	ID               string  `json:"chunk_id"`
	Title            string  `json:"pdf_title"`
	URL              string  `json:"pdf_url,omitempty"`
	Excerpt          string  `json:"chunk_text"`
	Score            float64 `json:"similarity_score"`
	ChunkIndex       int     `json:"chunk_index"`
	TotalChunks      int     `json:"total_chunks"`
	Date             string  `json:"date,omitempty"`
	DocumentType     string  `json:"document_type,omitempty"`
	ResolutionNumber string  `json:"resolution_number,omitempty"`
	Collection       string  `json:"source"`
	PageNumber       int     `json:"page_number,omitempty"`
	PageConfidence   string  `json:"page_confidence,omitempty"`

	// InContext is true when the passage (full or truncated) was part of
	// the prompt sent to the LLM. References can be shown to the user even
	// when they did not fit the context window.
	InContext bool `json:"in_context"`

	// Cited is true when the answer text contains a resolved citation
	// marker pointing at this reference.
	Cited bool `json:"cited"`
}

// NewReference builds a Reference from a selected candidate.
func NewReference(c Candidate) Reference {
	return Reference{
		ID:               c.ID,
		Title:            c.Meta.Title,
		URL:              c.Meta.URL,
		Excerpt:          c.Text,
		Score:            c.Score,
		ChunkIndex:       c.Meta.ChunkIndex,
		TotalChunks:      c.Meta.TotalChunks,
		Date:             c.Meta.Date,
		DocumentType:     c.Meta.DocumentType,
		ResolutionNumber: c.Meta.ResolutionNumber,
		Collection:       c.Collection,
		PageNumber:       c.Meta.PageNumber,
		PageConfidence:   c.Meta.PageConfidence,
	}
}

// CitationRef is the resolution of a single [n] marker found in the answer.
// RefIndex is -1 when the marker could not be resolved; it never points at
// a wrong reference.
type CitationRef struct {
	RefIndex int  `json:"ref_index"`
	Resolved bool `json:"resolved"`
}

// CitationMap maps citation marker numbers (as they literally appear in the
// answer, 1-indexed) to 0-indexed positions in the reference list.
type CitationMap map[int]CitationRef

// Diagnostics reports what happened inside the pipeline for one request.
type Diagnostics struct {
	FailedCollections []string `json:"failed_collections,omitempty"`
	NoEvidence        bool     `json:"no_evidence"`
	ContextTruncated  bool     `json:"context_truncated"`
	ContextExcluded   int      `json:"context_excluded"`
	InitialLimit      int      `json:"initial_limit"`
	CandidateCount    int      `json:"candidate_count"`
	ContextChars      int      `json:"context_chars"`
	RetrievalMS       int64    `json:"retrieval_ms"`
	RankingMS         int64    `json:"ranking_ms"`
	LLMMS             int64    `json:"llm_ms"`
	PromptTokens      int      `json:"prompt_tokens,omitempty"`
	CompletionTokens  int      `json:"completion_tokens,omitempty"`
}

// QueryRequest is the POST /ask request body. Collections accepts canonical
// collection names, short aliases, or "all".
type QueryRequest struct {
	Question    string   `json:"question"`
	Collections []string `json:"collections"`
	MaxResults  int      `json:"max_results"`
	MinScore    float64  `json:"min_score"`
	SessionID   string   `json:"session_id"`
}

// QueryResponse is the POST /ask response body.
type QueryResponse struct {
	Answer               string       `json:"answer"`
	Question             string       `json:"question"`
	References           []Reference  `json:"references"`
	TotalReferencesFound int          `json:"total_references_found"`
	Citations            CitationMap  `json:"citations"`
	CollectionsSearched  []string     `json:"collections_searched"`
	FailedCollections    []string     `json:"failed_collections,omitempty"`
	SessionID            string       `json:"session_id,omitempty"`
	Diagnostics          *Diagnostics `json:"diagnostics,omitempty"`
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CollectionsResponse is the GET /collections response body.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
	Total       int      `json:"total"`
}

// CollectionStats summarizes one collection for the analytics endpoint.
type CollectionStats struct {
	CollectionName string `json:"collection_name"`
	TotalChunks    int64  `json:"total_chunks"`
}

// AnalyticsResponse is the GET /analytics response body.
type AnalyticsResponse struct {
	TotalCollections int               `json:"total_collections"`
	TotalChunks      int64             `json:"total_chunks"`
	Collections      []CollectionStats `json:"collections"`
}
