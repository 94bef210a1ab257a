// Package handler implements HTTP handlers for the question-answering API.
package handler

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/fiqhlab/shariah-qa/internal/model"
	"github.com/fiqhlab/shariah-qa/internal/service"
)

// collectionAliases maps the short names accepted in requests to canonical
// collection names. "all" is handled separately by the orchestrator.
var collectionAliases = map[string]string{
	"bnm":  "bnm_pdfs",
	"iifa": "iifa_resolutions",
	"sc":   "sc_resolutions",
}

// QueryHandler handles POST /ask requests.
type QueryHandler struct {
	orchestrator *service.Orchestrator
	generator    service.Generator
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(orchestrator *service.Orchestrator, generator service.Generator) *QueryHandler {
	return &QueryHandler{
		orchestrator: orchestrator,
		generator:    generator,
	}
}

// Handle processes a POST /ask request through the full pipeline:
// resolve collections → embed → parallel retrieve → diversity ranking →
// context assembly → LLM → citation mapping → response.
func (h *QueryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totalStart := time.Now()
	requestID := chimw.GetReqID(ctx)

	var req model.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	req.Collections = resolveAliases(req.Collections)

	resp, err := h.orchestrator.Answer(ctx, req)
	if err != nil {
		h.handleAnswerError(w, req, err, requestID, totalStart)
		return
	}

	writeJSON(w, http.StatusOK, resp)
	h.emitQueryLog(req, resp, requestID, http.StatusOK, totalStart)
}

// handleAnswerError maps pipeline failures to HTTP responses. Generation
// failures still return the references the pipeline already found, so the
// caller can show sources even without an answer.
func (h *QueryHandler) handleAnswerError(w http.ResponseWriter, req model.QueryRequest, err error, requestID string, totalStart time.Time) {
	switch {
	case errors.Is(err, service.ErrInvalidMaxResults),
		errors.Is(err, service.ErrNoCollections):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())

	default:
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			slog.Error("generation failed", "error", genErr.Err, "request_id", requestID)
			partial := &model.QueryResponse{
				Answer:               "The language model could not produce an answer. The sources retrieved for this question are included below.",
				Question:             req.Question,
				References:           genErr.References,
				TotalReferencesFound: len(genErr.References),
				Citations:            model.CitationMap{},
				CollectionsSearched:  genErr.CollectionsSearched,
				SessionID:            req.SessionID,
				Diagnostics:          genErr.Diagnostics,
			}
			writeJSON(w, http.StatusBadGateway, partial)
			h.emitQueryLog(req, partial, requestID, http.StatusBadGateway, totalStart)
			return
		}

		var embedErr *service.EmbedError
		if errors.As(err, &embedErr) {
			slog.Error("failed to embed question", "error", embedErr.Err, "request_id", requestID)
			writeError(w, http.StatusInternalServerError, "internal", "failed to embed question")
			return
		}

		slog.Error("query failed", "error", err, "request_id", requestID)
		writeError(w, http.StatusInternalServerError, "internal", "query failed")
	}
}

// emitQueryLog writes the structured per-query log line.
func (h *QueryHandler) emitQueryLog(req model.QueryRequest, resp *model.QueryResponse, requestID string, httpStatus int, totalStart time.Time) {
	d := resp.Diagnostics
	if d == nil {
		d = &model.Diagnostics{}
	}
	slog.Info("query",
		"ts", time.Now().UTC().Format(time.RFC3339),
		"request_id", requestID,
		"session_id", resp.SessionID,
		"question_hash", hashQuestion(req.Question),
		"collections_searched", resp.CollectionsSearched,
		"failed_collections", resp.FailedCollections,
		"initial_limit", d.InitialLimit,
		"candidate_count", d.CandidateCount,
		"references", len(resp.References),
		"citations", len(resp.Citations),
		"no_evidence", d.NoEvidence,
		"context_chars", d.ContextChars,
		"context_truncated", d.ContextTruncated,
		"context_excluded", d.ContextExcluded,
		"latency_ms_total", time.Since(totalStart).Milliseconds(),
		"latency_ms_retrieval", d.RetrievalMS,
		"latency_ms_ranking", d.RankingMS,
		"latency_ms_llm", d.LLMMS,
		"llm_provider", h.generator.Provider(),
		"llm_model", h.generator.Model(),
		"llm_prompt_tokens", d.PromptTokens,
		"llm_completion_tokens", d.CompletionTokens,
		"http_status", httpStatus,
	)
}

// resolveAliases rewrites known short collection names to their canonical
// form, leaving everything else (including "all") untouched.
func resolveAliases(collections []string) []string {
	if len(collections) == 0 {
		return collections
	}
	out := make([]string, len(collections))
	for i, name := range collections {
		if canonical, ok := collectionAliases[name]; ok {
			out[i] = canonical
			continue
		}
		out[i] = name
	}
	return out
}

// hashQuestion returns SHA-256 hex of the question, so questions can be
// correlated in logs without logging their text.
func hashQuestion(question string) string {
	h := sha256.Sum256([]byte(question))
	return fmt.Sprintf("%x", h)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
