package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dmarek/casebook/internal/retrieval"
	"github.com/dmarek/casebook/internal/router"
	"github.com/dmarek/casebook/internal/storage"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *mockSearcher, *mockAsker) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	search := &mockSearcher{}
	asker := &mockAsker{answer: router.RoutedAnswer{
		Text: "mcp answer", Provider: "deepReasoning",
		Complexity: "deep", Effort: "deep", Citations: []string{"1"},
	}}
	return MCPDeps{Deps{Store: store, Search: search, Router: asker}}, search, asker
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPLegalSearch(t *testing.T) {
	deps, search, _ := newTestMCPDeps(t)
	search.results = []retrieval.SearchResult{{ChunkID: "c1", SourceFileName: "a.pdf", Score: 0.03}}

	handler := mcpLegalSearch(deps)
	result, err := handler(context.Background(), makeCallToolRequest("legal_search", map[string]interface{}{
		"query":     "notice period",
		"matter_id": "m1",
		"limit":     float64(5),
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if search.limit != 5 || search.scope.MatterID != "m1" {
		t.Errorf("search args: limit=%d scope=%+v", search.limit, search.scope)
	}

	var results []retrieval.SearchResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Errorf("results = %v", results)
	}
}

func TestMCPLegalSearch_MissingArgs(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	handler := mcpLegalSearch(deps)

	result, err := handler(context.Background(), makeCallToolRequest("legal_search", map[string]interface{}{
		"query": "notice",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError || !strings.Contains(toolText(t, result), "matter_id") {
		t.Errorf("expected matter_id error, got %q", toolText(t, result))
	}
}

func TestMCPAskCounsel(t *testing.T) {
	deps, search, asker := newTestMCPDeps(t)
	search.results = []retrieval.SearchResult{{ChunkID: "c1", Content: "chunk"}}

	handler := mcpAskCounsel(deps)
	result, err := handler(context.Background(), makeCallToolRequest("ask_counsel", map[string]interface{}{
		"question":  "Assess the limitation period implications",
		"matter_id": "m1",
		"effort":    "deep",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	if asker.req.Effort != router.EffortDeep || len(asker.req.Sources) != 1 {
		t.Errorf("router request = %+v", asker.req)
	}

	var resp map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["answer"] != "mcp answer" || resp["provider"] != "deepReasoning" {
		t.Errorf("resp = %v", resp)
	}
}

func TestMCPAskCounsel_RoutingError(t *testing.T) {
	deps, _, asker := newTestMCPDeps(t)
	asker.err = errors.New("no provider")

	handler := mcpAskCounsel(deps)
	result, err := handler(context.Background(), makeCallToolRequest("ask_counsel", map[string]interface{}{
		"question": "q",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error")
	}
}

func TestMCPResourceStats(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	handler := mcpResourceStats(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "corpus://stats"},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var stats storage.Stats
	if err := json.Unmarshal([]byte(text.Text), &stats); err != nil {
		t.Fatal(err)
	}
}
