package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiEmbedTimeout = 30 * time.Second

// GeminiProvider is the preferred embedding backend. It supports true batch
// calls via the batchEmbedContents endpoint.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider creates a Gemini embedding provider. An empty apiKey
// yields a provider that reports itself unavailable.
func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: geminiEmbedTimeout},
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// IsAvailable reports whether a credential is configured.
func (p *GeminiProvider) IsAvailable(_ context.Context) bool { return p.apiKey != "" }

type embedContentRequest struct {
	Model   string       `json:"model,omitempty"`
	Content embedContent `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedValues struct {
	Values []float32 `json:"values"`
}

// Embed returns the embedding for a single text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedContentRequest{
		Content: embedContent{Parts: []embedPart{{Text: text}}},
	}
	var resp struct {
		Embedding embedValues `json:"embedding"`
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s", p.baseURL, p.model, p.apiKey)
	if err := p.post(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding in response")
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds all texts in one batchEmbedContents call, preserving
// input order (the API guarantees response order matches request order).
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqs := make([]embedContentRequest, len(texts))
	for i, t := range texts {
		reqs[i] = embedContentRequest{
			Model:   "models/" + p.model,
			Content: embedContent{Parts: []embedPart{{Text: t}}},
		}
	}
	var resp struct {
		Embeddings []embedValues `json:"embeddings"`
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents?key=%s", p.baseURL, p.model, p.apiKey)
	if err := p.post(ctx, url, map[string]any{"requests": reqs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed batch: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vecs[i] = e.Values
	}
	return vecs, nil
}

func (p *GeminiProvider) post(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gemini embed returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
