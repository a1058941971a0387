// Package api exposes the research core over HTTP and MCP. Handlers stay
// thin: validation, wiring, and response shaping live here, all routing
// and retrieval policy lives in the core packages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmarek/casebook/internal/provider"
	"github.com/dmarek/casebook/internal/retrieval"
	"github.com/dmarek/casebook/internal/router"
	"github.com/dmarek/casebook/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Searcher is the retrieval entry point the handlers call.
type Searcher interface {
	Search(ctx context.Context, query string, scope retrieval.Scope, limit int) ([]retrieval.SearchResult, error)
}

// Asker routes a question to a provider.
type Asker interface {
	Route(ctx context.Context, req router.Request) (router.RoutedAnswer, error)
}

// Deps holds handler dependencies.
type Deps struct {
	Store  *storage.Store
	Search Searcher
	Router Asker
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/ask", handleAsk(deps))
	r.Post("/search", handleSearch(deps))
	r.Get("/interactions", handleInteractions(deps))
	r.Get("/stats", handleStats(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type AskRequest struct {
	Question    string             `json:"question"`
	MatterID    string             `json:"matter_id"`
	Effort      string             `json:"effort"`
	History     []provider.Message `json:"history"`
	CaseContext string             `json:"case_context"`
	FileType    string             `json:"file_type"`
}

type AskResponse struct {
	Answer     string                   `json:"answer"`
	Provider   string                   `json:"provider"`
	Complexity string                   `json:"complexity"`
	Effort     string                   `json:"effort"`
	Citations  []string                 `json:"citations"`
	Sources    []retrieval.SearchResult `json:"sources"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}
		effort, err := router.ParseEffort(req.Effort)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		// Retrieval failures never block an answer; the router just gets
		// fewer sources.
		var sources []retrieval.SearchResult
		if req.MatterID != "" {
			profile := router.ProfileFor(effort)
			scope := retrieval.Scope{MatterID: req.MatterID, FileType: req.FileType}
			sources, err = deps.Search.Search(r.Context(), req.Question, scope, profile.RetrievalChunkLimit)
			if err != nil {
				slog.Warn("retrieval failed, answering without sources", "error", err)
				sources = nil
			}
		}

		answer, err := deps.Router.Route(r.Context(), router.Request{
			Query:       req.Question,
			Effort:      effort,
			History:     req.History,
			CaseContext: req.CaseContext,
			Sources:     sources,
		})
		if errors.Is(err, router.ErrNoProviderConfigured) {
			httpError(w, http.StatusServiceUnavailable, "configuration_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "generation failed: %v", err)
			return
		}

		if saveErr := deps.Store.SaveInteraction(r.Context(), storage.Interaction{
			ID:         uuid.NewString(),
			CreatedAt:  time.Now().UTC(),
			Question:   req.Question,
			Complexity: string(answer.Complexity),
			Provider:   answer.Provider,
			Effort:     string(answer.Effort),
		}); saveErr != nil {
			slog.Warn("failed to record interaction", "error", saveErr)
		}

		if sources == nil {
			sources = []retrieval.SearchResult{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AskResponse{
			Answer:     answer.Text,
			Provider:   answer.Provider,
			Complexity: string(answer.Complexity),
			Effort:     string(answer.Effort),
			Citations:  answer.Citations,
			Sources:    sources,
		})
	}
}

type SearchRequest struct {
	Query    string   `json:"query"`
	MatterID string   `json:"matter_id"`
	FileIDs  []string `json:"file_ids"`
	FileType string   `json:"file_type"`
	Limit    int      `json:"limit"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.MatterID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "matter_id is required")
			return
		}

		scope := retrieval.Scope{MatterID: req.MatterID, FileIDs: req.FileIDs, FileType: req.FileType}
		results, err := deps.Search.Search(r.Context(), req.Query, scope, req.Limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		if results == nil {
			results = []retrieval.SearchResult{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	}
}

func handleInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		interactions, err := deps.Store.RecentInteractions(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interactions)
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Store.Stats(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute stats: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
