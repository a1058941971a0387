package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const defaultLimit = 10

// Engine routes a search through the hybrid path when an embedding is
// available and falls back to text-only search otherwise. Backend failures
// on the primary path degrade to the fallback rather than surfacing:
// retrieval errors are expected and recoverable, not fatal to the caller.
type Engine struct {
	embedder Embedder
	hybrid   HybridBackend
	text     TextBackend
	logger   *slog.Logger
}

// NewEngine creates an Engine over the given embedder and backends.
func NewEngine(embedder Embedder, hybrid HybridBackend, text TextBackend) *Engine {
	return &Engine{
		embedder: embedder,
		hybrid:   hybrid,
		text:     text,
		logger:   slog.Default(),
	}
}

// Search returns up to limit chunks ranked for the query, restricted to
// scope. An empty query short-circuits to an empty result with no backend
// calls. Results are sorted by score descending with ties broken by ChunkID
// ascending, so identical inputs always produce identical orderings.
func (e *Engine) Search(ctx context.Context, query string, scope Scope, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	vec := e.embedder.Embed(ctx, query)
	if len(vec) > 0 {
		results, err := e.hybrid.SearchHybrid(ctx, query, vec, scope, limit)
		if err == nil {
			return finalize(results, limit), nil
		}
		e.logger.Warn("hybrid search failed, falling back to text-only", "error", err)
	}

	results, err := e.text.SearchText(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return finalize(results, limit), nil
}

// finalize applies the deterministic ordering invariant and the limit.
func finalize(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
