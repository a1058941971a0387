// Package router selects a model provider and assembles the generation
// payload for a legal research question. Provider choice follows the
// caller's effort level first and the query's computed complexity second;
// the only hard failure is having no usable provider at all.
package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmarek/casebook/internal/classify"
	"github.com/dmarek/casebook/internal/composer"
	"github.com/dmarek/casebook/internal/provider"
	"github.com/dmarek/casebook/internal/retrieval"
)

// ErrNoProviderConfigured is returned when neither provider can serve the
// request. It is a configuration error: surfaced verbatim, never retried.
var ErrNoProviderConfigured = errors.New("no model provider configured")

// historyWindow is how many trailing conversation turns the deep-reasoning
// provider receives. The fast provider gets history unmodified.
const historyWindow = 6

// KnowledgeBuilder supplies curated legal context for a query. An empty
// string means nothing relevant was found; lookup failures are absorbed by
// the implementation.
type KnowledgeBuilder interface {
	BuildLegalContext(ctx context.Context, query string) string
}

// Router routes questions to the fast multimodal or deep reasoning
// provider. Either provider may be nil when unconfigured.
type Router struct {
	fast      provider.Provider
	deep      provider.Provider
	knowledge KnowledgeBuilder
	logger    *slog.Logger
}

func New(fast, deep provider.Provider, knowledge KnowledgeBuilder) *Router {
	return &Router{fast: fast, deep: deep, knowledge: knowledge, logger: slog.Default()}
}

// Request is one routed question. Sources are pre-retrieved document
// chunks supplied by the caller; the router never performs retrieval
// itself.
type Request struct {
	Query       string
	Effort      EffortLevel
	History     []provider.Message
	CaseContext string
	Sources     []retrieval.SearchResult
}

// RoutedAnswer is the routed generation outcome. Citations is never nil.
type RoutedAnswer struct {
	Text       string         `json:"text"`
	Provider   string         `json:"provider"`
	Complexity classify.Level `json:"complexity"`
	Effort     EffortLevel    `json:"effort"`
	Citations  []string       `json:"citations"`
}

// Route classifies the query, picks a provider, assembles the payload, and
// generates an answer.
//
// Quick effort skips knowledge-context building entirely; that trade is
// latency over completeness and callers opt into it explicitly.
func (r *Router) Route(ctx context.Context, req Request) (RoutedAnswer, error) {
	effort := req.Effort
	if effort == "" {
		effort = EffortStandard
	}
	profile := ProfileFor(effort)
	complexity := classify.Classify(req.Query)

	selected, err := r.selectProvider(effort, complexity)
	if err != nil {
		return RoutedAnswer{}, err
	}

	var blocks []string
	if effort != EffortQuick && r.knowledge != nil {
		if kc := r.knowledge.BuildLegalContext(ctx, req.Query); kc != "" {
			blocks = append(blocks, kc)
		}
	}
	if req.CaseContext != "" {
		blocks = append(blocks, req.CaseContext)
	}
	if len(req.Sources) > 0 {
		blocks = append(blocks, composer.FormatSearchContext(req.Sources), composer.CitationInstruction)
	}

	window := 0
	if selected.Name() == provider.NameDeepReasoning {
		window = historyWindow
	}
	messages := composer.BuildMessages(composer.SystemPrompt, req.History, window, blocks, req.Query)

	r.logger.Info("routing question",
		"provider", selected.Name(), "complexity", complexity, "effort", effort)

	result, err := selected.Generate(ctx, messages, provider.GenerateParams{
		ReasoningDepth:  profile.ReasoningDepth,
		MaxOutputTokens: profile.MaxOutputTokens,
	})
	if err != nil {
		return RoutedAnswer{}, err
	}

	citations := result.Citations
	if citations == nil {
		citations = []string{}
	}
	return RoutedAnswer{
		Text:       result.Text,
		Provider:   selected.Name(),
		Complexity: complexity,
		Effort:     effort,
		Citations:  citations,
	}, nil
}

// selectProvider applies precedence: effort override first, then computed
// complexity, then whichever provider is left standing.
func (r *Router) selectProvider(effort EffortLevel, complexity classify.Level) (provider.Provider, error) {
	fastOK := r.fast != nil && r.fast.IsAvailable()
	deepOK := r.deep != nil && r.deep.IsAvailable()

	switch {
	case effort == EffortQuick && fastOK:
		return r.fast, nil
	case effort == EffortDeep && deepOK:
		return r.deep, nil
	case complexity == classify.Deep && deepOK:
		return r.deep, nil
	case fastOK:
		return r.fast, nil
	case deepOK:
		return r.deep, nil
	default:
		return nil, ErrNoProviderConfigured
	}
}
