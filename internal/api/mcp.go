package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmarek/casebook/internal/retrieval"
	"github.com/dmarek/casebook/internal/router"
)

// MCPDeps holds dependencies for the MCP server. Store is also used by the
// corpus stats resource.
type MCPDeps struct {
	Deps
}

// NewMCPServer registers the research tools and resources for MCP clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"casebook",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("casebook — legal research over matter documents and a curated corpus of cases, principles, and legislation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("legal_search",
			mcp.WithDescription("Search a matter's documents with hybrid semantic and full-text retrieval."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("matter_id", mcp.Description("Matter to search within"), mcp.Required()),
			mcp.WithString("file_type", mcp.Description("Optional file type filter (pdf, html, text, audio)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 8)")),
		),
		mcpLegalSearch(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_counsel",
			mcp.WithDescription("Ask a legal research question. Routes to the appropriate model by complexity and effort, with knowledge context and cited matter documents."),
			mcp.WithString("question", mcp.Description("The research question"), mcp.Required()),
			mcp.WithString("matter_id", mcp.Description("Optional matter whose documents should be retrieved as sources")),
			mcp.WithString("effort", mcp.Description("Effort level: quick, standard, thorough, or deep (default standard)")),
		),
		mcpAskCounsel(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"corpus://stats",
			"Corpus Statistics",
			mcp.WithResourceDescription("Row counts for chunks, corpus entries, and interactions"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpLegalSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		matterID, err := req.RequireString("matter_id")
		if err != nil {
			return mcpError("matter_id is required"), nil
		}

		limit := req.GetInt("limit", 8)
		if limit <= 0 {
			limit = 8
		}
		if limit > 50 {
			limit = 50
		}

		scope := retrieval.Scope{MatterID: matterID, FileType: req.GetString("file_type", "")}
		results, err := deps.Search.Search(ctx, query, scope, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if results == nil {
			results = []retrieval.SearchResult{}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskCounsel(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		effort, err := router.ParseEffort(req.GetString("effort", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		var sources []retrieval.SearchResult
		if matterID := req.GetString("matter_id", ""); matterID != "" {
			profile := router.ProfileFor(effort)
			sources, err = deps.Search.Search(ctx, question,
				retrieval.Scope{MatterID: matterID}, profile.RetrievalChunkLimit)
			if err != nil {
				sources = nil
			}
		}

		answer, err := deps.Router.Route(ctx, router.Request{
			Query:   question,
			Effort:  effort,
			Sources: sources,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("routing failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"answer":     answer.Text,
			"provider":   answer.Provider,
			"complexity": answer.Complexity,
			"effort":     answer.Effort,
			"citations":  answer.Citations,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := deps.Store.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
