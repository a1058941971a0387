// Package provider defines the model-backend contract and the two concrete
// backends the router selects between: a fast multimodal provider (Gemini)
// and a deep-reasoning provider (OpenRouter).
package provider

import "context"

// Provider names as reported in RoutedAnswer.Provider.
const (
	NameFastMultimodal = "fastMultimodal"
	NameDeepReasoning  = "deepReasoning"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReasoningDepth is the requested reasoning budget for a generation call.
type ReasoningDepth string

const (
	ReasoningNone   ReasoningDepth = "none"
	ReasoningLow    ReasoningDepth = "low"
	ReasoningMedium ReasoningDepth = "medium"
	ReasoningHigh   ReasoningDepth = "high"
)

// GenerateParams carries the per-call budget derived from the effort profile.
type GenerateParams struct {
	ReasoningDepth  ReasoningDepth
	MaxOutputTokens int
}

// Result is a completed generation. Citations holds the source labels the
// provider marked in its own output; providers that do not self-report
// citations return an empty slice, never an error for that reason alone.
type Result struct {
	Text      string
	Citations []string
}

// Provider is a model backend. Implementations are stateless from the
// caller's perspective and safe for concurrent use. Availability is checked
// per call so that credential changes take effect without a restart.
type Provider interface {
	Name() string
	IsAvailable() bool
	Generate(ctx context.Context, messages []Message, params GenerateParams) (Result, error)
}
