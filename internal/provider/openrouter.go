package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	openRouterTimeout = 180 * time.Second
	maxRetries        = 3
	initialBackoff    = 500 * time.Millisecond
)

// OpenRouter is the deep-reasoning provider. It talks to an OpenAI-compatible
// chat completions endpoint and asks the model to think before answering.
// Unlike the fast provider it self-reports citations by scanning its own
// output for [Source N] markers.
type OpenRouter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	referer    string
	title      string
}

// NewOpenRouter creates an OpenRouter provider. An empty apiKey yields a
// provider that reports itself unavailable.
func NewOpenRouter(apiKey, baseURL, model string) *OpenRouter {
	return &OpenRouter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: openRouterTimeout},
		referer:    "https://github.com/dmarek/casebook",
		title:      "casebook",
	}
}

func (o *OpenRouter) Name() string { return NameDeepReasoning }

// IsAvailable reports whether a credential is configured.
func (o *OpenRouter) IsAvailable() bool { return o.apiKey != "" }

type chatRequest struct {
	Model     string          `json:"model"`
	Messages  []Message       `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Reasoning *reasoningParam `json:"reasoning,omitempty"`
}

type reasoningParam struct {
	Effort string `json:"effort"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends a chat completion request, retrying with exponential backoff
// on rate limits. Reasoning effort is forwarded unless the profile asks for
// none.
func (o *OpenRouter) Generate(ctx context.Context, messages []Message, params GenerateParams) (Result, error) {
	if !o.IsAvailable() {
		return Result{}, fmt.Errorf("openrouter: no API key configured")
	}

	req := chatRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: params.MaxOutputTokens,
	}
	if params.ReasoningDepth != "" && params.ReasoningDepth != ReasoningNone {
		req.Reasoning = &reasoningParam{Effort: string(params.ReasoningDepth)}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		text, err := o.doChat(ctx, body)
		if err == nil {
			return Result{Text: text, Citations: ExtractCitations(text)}, nil
		}

		if !isRateLimit(err) {
			return Result{}, err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return Result{}, fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}

func (o *OpenRouter) doChat(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("HTTP-Referer", o.referer)
	httpReq.Header.Set("X-Title", o.title)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// ExtractCitations returns the distinct [Source N] labels referenced in the
// text, in order of first appearance. Text with no recognizable markers
// yields an empty slice, never nil and never an error.
func ExtractCitations(text string) []string {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	citations := []string{}
	seen := make(map[string]bool)
	for _, m := range matches {
		label := "Source " + m[1]
		if seen[label] {
			continue
		}
		seen[label] = true
		citations = append(citations, label)
	}
	return citations
}
