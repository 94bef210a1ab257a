package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fiqhlab/shariah-qa/internal/index"
	"github.com/fiqhlab/shariah-qa/internal/model"
)

const noEvidenceMessage = "I couldn't find any relevant information to answer your question. " +
	"Please try rephrasing your question or checking if the relevant documents have been indexed."

// PipelineConfig holds the tuning knobs for one orchestrator instance.
type PipelineConfig struct {
	InitialRetrievalCount int
	FinalRetrievalCount   int
	MinSimilarityScore    float64
	DiversityWeight       float64
	MaxContextLength      int
	LLMTimeout            time.Duration

	// FallbackCollections is used to expand "all" when the store's
	// collection listing is unavailable.
	FallbackCollections []string
}

// Orchestrator drives the full pipeline for one question:
// resolve collections → retrieve → diversify → assemble → generate → cite.
// Each stage depends only on the previous stage's output; per-request state
// is owned by the request and needs no synchronization.
type Orchestrator struct {
	cfg       PipelineConfig
	retriever *Retriever
	registry  index.Registry
	generator Generator
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg PipelineConfig, retriever *Retriever, registry index.Registry, generator Generator) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		retriever: retriever,
		registry:  registry,
		generator: generator,
	}
}

// Answer runs the pipeline for one request. The two failures a caller must
// handle are configuration errors (ErrNoCollections, ErrInvalidMaxResults)
// and *GenerationError; every other deviation (failed collections,
// truncation, no evidence, unresolved citations) is reported as data in
// the response.
func (o *Orchestrator) Answer(ctx context.Context, req model.QueryRequest) (*model.QueryResponse, error) {
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = o.cfg.FinalRetrievalCount
	}
	if maxResults < 0 {
		return nil, ErrInvalidMaxResults
	}
	minScore := req.MinScore
	if minScore == 0 {
		minScore = o.cfg.MinSimilarityScore
	}

	collections, err := o.resolveCollections(ctx, req.Collections)
	if err != nil {
		return nil, err
	}

	diag := &model.Diagnostics{}

	// Stage 1+2: embed once, fan out across collections.
	retrieveStart := time.Now()
	initialLimit := InitialLimit(req.Question, o.cfg.InitialRetrievalCount, maxResults)
	retrieved, err := o.retriever.Retrieve(ctx, req.Question, collections, minScore, initialLimit)
	if err != nil {
		return nil, err
	}
	diag.RetrievalMS = time.Since(retrieveStart).Milliseconds()
	diag.InitialLimit = initialLimit
	diag.CandidateCount = len(retrieved.Candidates)
	diag.FailedCollections = retrieved.FailedCollections

	searched := searchedCollections(collections, retrieved.FailedCollections)

	// Stage 3: no surviving candidates is a first-class outcome, not an
	// error. The caller renders it as "no answer available".
	if len(retrieved.Candidates) == 0 {
		diag.NoEvidence = true
		answer := noEvidenceMessage
		if len(retrieved.FailedCollections) > 0 {
			answer += " Note: some collections (" + strings.Join(retrieved.FailedCollections, ", ") +
				") could not be searched due to errors."
		}
		return &model.QueryResponse{
			Answer:              answer,
			Question:            req.Question,
			References:          []model.Reference{},
			Citations:           model.CitationMap{},
			CollectionsSearched: searched,
			FailedCollections:   retrieved.FailedCollections,
			SessionID:           req.SessionID,
			Diagnostics:         diag,
		}, nil
	}

	// Stage 4: diversity-aware selection.
	rankStart := time.Now()
	selected := SelectDiverse(retrieved.Candidates, maxResults, o.cfg.DiversityWeight)
	diag.RankingMS = time.Since(rankStart).Milliseconds()

	refs := make([]model.Reference, 0, len(selected))
	for _, c := range selected {
		refs = append(refs, model.NewReference(c))
	}

	// Stage 5: bounded context assembly.
	assembled := AssembleContext(refs, o.cfg.MaxContextLength)
	refs = assembled.References
	diag.ContextTruncated = assembled.Truncated
	diag.ContextExcluded = assembled.Excluded
	diag.ContextChars = len(assembled.Text)

	// Stage 6: time-boxed LLM call. A failure here still returns the
	// references already computed.
	llmCtx, cancel := context.WithTimeout(ctx, o.cfg.LLMTimeout)
	defer cancel()

	llmStart := time.Now()
	llmResp, err := o.generator.Generate(llmCtx, SystemPrompt, BuildUserMessage(assembled.Text, req.Question))
	diag.LLMMS = time.Since(llmStart).Milliseconds()
	if err != nil {
		slog.Error("LLM call failed",
			"provider", o.generator.Provider(),
			"model", o.generator.Model(),
			"error", err,
		)
		return nil, &GenerationError{
			Err:                 err,
			References:          refs,
			CollectionsSearched: searched,
			Diagnostics:         diag,
		}
	}
	diag.PromptTokens = llmResp.PromptTokens
	diag.CompletionTokens = llmResp.CompletionTokens

	// Stage 7: resolve citation markers against the reference order the
	// model was shown.
	citations := MapCitations(llmResp.Text, len(refs), nil)
	MarkCited(refs, citations)

	return &model.QueryResponse{
		Answer:               llmResp.Text,
		Question:             req.Question,
		References:           refs,
		TotalReferencesFound: len(refs),
		Citations:            citations,
		CollectionsSearched:  searched,
		FailedCollections:    retrieved.FailedCollections,
		SessionID:            req.SessionID,
		Diagnostics:          diag,
	}, nil
}

// resolveCollections expands "all" (or an empty request) to the store's
// current collection list, falling back to the configured list when the
// listing is unavailable. An explicit selection passes through unchanged.
func (o *Orchestrator) resolveCollections(ctx context.Context, requested []string) ([]string, error) {
	wantAll := len(requested) == 0
	for _, name := range requested {
		if strings.EqualFold(name, "all") {
			wantAll = true
			break
		}
	}

	if !wantAll {
		return requested, nil
	}

	names, err := o.registry.ListCollections(ctx)
	if err != nil || len(names) == 0 {
		if err != nil {
			slog.Warn("collection listing unavailable, using configured collections", "error", err)
		}
		names = o.cfg.FallbackCollections
	}
	if len(names) == 0 {
		return nil, ErrNoCollections
	}
	return names, nil
}

func searchedCollections(requested, failed []string) []string {
	if len(failed) == 0 {
		return requested
	}
	failedSet := make(map[string]bool, len(failed))
	for _, name := range failed {
		failedSet[name] = true
	}
	searched := make([]string, 0, len(requested))
	for _, name := range requested {
		if !failedSet[name] {
			searched = append(searched, name)
		}
	}
	return searched
}
