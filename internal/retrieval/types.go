// Package retrieval finds relevant document chunks for a query using hybrid
// vector + full-text search with reciprocal rank fusion, degrading to
// full-text-only search when no embedding is available.
package retrieval

import (
	"context"
	"time"
)

// SearchResult is one ranked document chunk. Results are produced fresh per
// call and never mutated; slice order is relevance order.
type SearchResult struct {
	ChunkID        string   `json:"chunk_id"`
	FileID         string   `json:"file_id"`
	Content        string   `json:"content"`
	PageNumber     *int     `json:"page_number,omitempty"`
	SectionHeading *string  `json:"section_heading,omitempty"`
	SourceFileName string   `json:"source_file_name"`
	SourceFileType string   `json:"source_file_type"`
	Score          float64  `json:"score"`
	TimestampStart *float64 `json:"timestamp_start,omitempty"`
}

// Scope restricts a search to the caller's permitted file set. MatterID is
// required; FileIDs optionally narrows within the matter and FileType
// optionally filters by document kind. Every search path, including the
// degraded text-only fallback, must honor the scope.
type Scope struct {
	MatterID string
	FileIDs  []string
	FileType string
}

// Chunk is the write shape for document fragments. A nil Embedding stores a
// text-only chunk that hybrid search skips but full-text search still finds.
type Chunk struct {
	ID                string
	MatterID          string
	FileID            string
	FileName          string
	FileType          string
	PageNumber        *int
	SectionHeading    *string
	TimestampStart    *float64
	Content           string
	Embedding         []float32
	EmbeddingProvider string
	CreatedAt         time.Time
}

// Embedder supplies query embeddings. An empty vector means "no embedding
// available" and triggers the text-only path; it is not an error.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// HybridBackend performs combined vector + full-text search over the chunk
// corpus, returning results scored by reciprocal rank fusion.
type HybridBackend interface {
	SearchHybrid(ctx context.Context, query string, embedding []float32, scope Scope, limit int) ([]SearchResult, error)
}

// TextBackend performs full-text-only search. All results carry score 1
// since there is no second ranking to fuse against.
type TextBackend interface {
	SearchText(ctx context.Context, query string, scope Scope, limit int) ([]SearchResult, error)
}
