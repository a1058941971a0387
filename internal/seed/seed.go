// Package seed loads the curated legal corpus from JSON files and ingests
// matter documents into the chunk store, embedding them when an embedding
// provider is reachable. Seeding degrades rather than fails: documents
// without embeddings are still stored and remain findable through
// full-text search.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmarek/casebook/internal/knowledge"
	"github.com/dmarek/casebook/internal/retrieval"
)

// ingestConcurrency bounds parallel document ingestion. SQLite writes
// serialize anyway; the win is overlapping extraction and embedding calls.
const ingestConcurrency = 2

// ChunkStore is the write side of the retrieval backend.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []retrieval.Chunk) error
	DeleteFileChunks(ctx context.Context, fileID string) error
}

// CorpusWriter is the write side of the curated corpus.
type CorpusWriter interface {
	InsertCase(ctx context.Context, cs knowledge.CaseSummary) error
	InsertPrinciple(ctx context.Context, p knowledge.LegalPrinciple) error
	InsertLegislation(ctx context.Context, s knowledge.LegislationSection) error
}

// BatchEmbedder embeds chunk batches. Empty vectors mean no provider was
// available; that is a degraded mode, not an error.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	Active(ctx context.Context) (string, bool)
}

type Seeder struct {
	corpus   CorpusWriter
	chunks   ChunkStore
	embedder BatchEmbedder
	logger   *slog.Logger
}

func NewSeeder(corpus CorpusWriter, chunks ChunkStore, embedder BatchEmbedder) *Seeder {
	return &Seeder{corpus: corpus, chunks: chunks, embedder: embedder, logger: slog.Default()}
}

// CorpusCounts reports how many corpus entries were loaded.
type CorpusCounts struct {
	Cases       int
	Principles  int
	Legislation int
}

// LoadCorpus reads cases.json, principles.json, and legislation.json from
// dir and inserts their entries. Missing files are skipped; a malformed
// file aborts the load.
func (s *Seeder) LoadCorpus(ctx context.Context, dir string) (CorpusCounts, error) {
	var counts CorpusCounts

	var cases []knowledge.CaseSummary
	if err := loadJSON(filepath.Join(dir, "cases.json"), &cases); err != nil {
		return counts, err
	}
	for _, c := range cases {
		if err := s.corpus.InsertCase(ctx, c); err != nil {
			return counts, err
		}
		counts.Cases++
	}

	var principles []knowledge.LegalPrinciple
	if err := loadJSON(filepath.Join(dir, "principles.json"), &principles); err != nil {
		return counts, err
	}
	for _, p := range principles {
		if err := s.corpus.InsertPrinciple(ctx, p); err != nil {
			return counts, err
		}
		counts.Principles++
	}

	var sections []knowledge.LegislationSection
	if err := loadJSON(filepath.Join(dir, "legislation.json"), &sections); err != nil {
		return counts, err
	}
	for _, sec := range sections {
		if err := s.corpus.InsertLegislation(ctx, sec); err != nil {
			return counts, err
		}
		counts.Legislation++
	}

	s.logger.Info("corpus loaded", "cases", counts.Cases,
		"principles", counts.Principles, "legislation", counts.Legislation)
	return counts, nil
}

func loadJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// IngestDir ingests every supported document under dir into the given
// matter. Files are processed concurrently; one bad file fails the run.
func (s *Seeder) IngestDir(ctx context.Context, dir, matterID string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	counts := make([]int, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}
		g.Go(func() error {
			n, err := s.IngestFile(gctx, filepath.Join(dir, entry.Name()), matterID)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func supported(name string) bool {
	switch filepath.Ext(name) {
	case ".pdf", ".html", ".htm", ".txt", ".md":
		return true
	}
	return false
}

// IngestFile extracts, chunks, embeds, and stores one document. Returns
// the number of chunks written.
func (s *Seeder) IngestFile(ctx context.Context, path, matterID string) (int, error) {
	pages, fileType, err := extractFile(path)
	if err != nil {
		return 0, err
	}

	fileID := uuid.NewString()
	fileName := filepath.Base(path)
	now := time.Now().UTC()

	var chunks []retrieval.Chunk
	for _, page := range pages {
		for _, content := range splitChunks(page.Text) {
			chunks = append(chunks, retrieval.Chunk{
				ID:         uuid.NewString(),
				MatterID:   matterID,
				FileID:     fileID,
				FileName:   fileName,
				FileType:   fileType,
				PageNumber: page.Page,
				Content:    content,
				CreatedAt:  now,
			})
		}
	}
	if len(chunks) == 0 {
		s.logger.Warn("no text extracted", "file", fileName)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	providerName, embeddable := s.embedder.Active(ctx)
	vecs := s.embedder.EmbedBatch(ctx, texts)
	embedded := 0
	for i := range chunks {
		if len(vecs[i]) == 0 {
			continue
		}
		chunks[i].Embedding = vecs[i]
		chunks[i].EmbeddingProvider = providerName
		embedded++
	}
	if !embeddable || embedded == 0 {
		s.logger.Warn("storing chunks without embeddings, text search only", "file", fileName)
	}

	if err := s.chunks.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks for %s: %w", fileName, err)
	}

	s.logger.Info("document ingested", "file", fileName,
		"chunks", len(chunks), "embedded", embedded)
	return len(chunks), nil
}
