package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmarek/casebook/internal/ollama"
)

// OllamaProvider is the secondary embedding backend, served by a local
// Ollama instance. It has no batch endpoint, so batches become bounded
// concurrent per-text calls with input order preserved.
type OllamaProvider struct {
	client *ollama.Client
	model  string
}

// NewOllamaProvider creates an Ollama embedding provider.
func NewOllamaProvider(client *ollama.Client, model string) *OllamaProvider {
	return &OllamaProvider{client: client, model: model}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// IsAvailable probes the local server.
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return p.client.IsRunning(ctx)
}

// Embed returns the embedding vector for a single text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.client.Embed(ctx, p.model, text)
}

// EmbedBatch embeds each text with its own request. Results keep input
// order; concurrency is bounded to avoid overwhelming the local server.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := p.client.Embed(gCtx, p.model, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
