// Package embedding converts text to vectors through a preference-ordered
// chain of providers. Vectors from different providers are not comparable
// (dimensionality differs), so a single call never mixes providers: whichever
// provider handles the first text handles the whole batch.
package embedding

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

// maxEmbedChars is the silent truncation limit applied before any provider
// call. Provider input limits vary; this cap keeps every backend safely under
// its own. Truncation is documented behavior, not an error.
const maxEmbedChars = 8000

// Provider is a single embedding backend.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can serve a call right now.
	// Checked per call so credential or server changes take effect
	// immediately.
	IsAvailable(ctx context.Context) bool
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds all texts with this provider, preserving input
	// order. Backends without a true batch API issue per-text requests.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway tries providers in preference order and absorbs their failures.
// A missing or failing provider chain yields empty vectors, which callers
// must treat as "no embedding available", not as an error.
type Gateway struct {
	providers []Provider
	logger    *slog.Logger
}

// NewGateway creates a Gateway over the given providers, tried in order.
func NewGateway(providers ...Provider) *Gateway {
	return &Gateway{providers: providers, logger: slog.Default()}
}

// Embed returns the vector for text from the first provider that can serve
// it, or an empty vector if none can.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	text = truncate(text)
	for _, p := range g.providers {
		if !p.IsAvailable(ctx) {
			continue
		}
		vec, err := p.Embed(ctx, text)
		if err != nil {
			g.logger.Warn("embedding provider failed, trying next", "provider", p.Name(), "error", err)
			continue
		}
		return vec
	}
	return nil
}

// EmbedBatch embeds all texts with a single provider, preserving input order.
// If no provider can serve the batch, every slot in the result is empty.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncate(t)
	}

	for _, p := range g.providers {
		if !p.IsAvailable(ctx) {
			continue
		}
		vecs, err := p.EmbedBatch(ctx, truncated)
		if err != nil {
			g.logger.Warn("batch embedding provider failed, trying next", "provider", p.Name(), "error", err)
			continue
		}
		return vecs
	}
	return make([][]float32, len(texts))
}

// Active returns the name of the provider that would serve the next call,
// or false if none is available.
func (g *Gateway) Active(ctx context.Context) (string, bool) {
	for _, p := range g.providers {
		if p.IsAvailable(ctx) {
			return p.Name(), true
		}
	}
	return "", false
}

func truncate(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := maxEmbedChars
	// Back off to a rune boundary so truncation never splits a character.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
