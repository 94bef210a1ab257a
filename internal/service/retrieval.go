package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/fiqhlab/shariah-qa/internal/index"
	"github.com/fiqhlab/shariah-qa/internal/model"
)

// interrogative markers that flag a question as complex enough to need
// evidence from more than one passage cluster.
var complexMarkers = []string{"what", "how", "why", "explain", "describe", "compare"}

// Retriever runs the over-fetch stage: one embedding, a parallel
// nearest-neighbor query per collection, a hard score filter, and a
// deterministic merge.
type Retriever struct {
	embedder Embedder
	searcher index.Searcher
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, searcher index.Searcher) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher}
}

// RetrievalResult holds the merged candidate set and the per-collection
// failures encountered while building it.
type RetrievalResult struct {
	Candidates        []model.Candidate
	QueryVector       []float32
	FailedCollections []string
	InitialLimit      int
}

// InitialLimit computes the stage-1 fan-out for a question. The base is
// whichever is larger of the configured initial count and three times the
// final count, so over-fetch always strictly exceeds the final count;
// complex questions get half again as much.
func InitialLimit(question string, initialCount, finalCount int) int {
	limit := initialCount
	if min := finalCount * 3; min > limit {
		limit = min
	}
	if isComplexQuestion(question) {
		limit = limit * 3 / 2
	}
	return limit
}

func isComplexQuestion(question string) bool {
	if len(strings.Fields(question)) > 10 {
		return true
	}
	if strings.Contains(question, "?") {
		return true
	}
	lower := strings.ToLower(question)
	for _, marker := range complexMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Retrieve embeds the question once and queries every target collection in
// parallel, merging the survivors of the min-score filter by descending
// score. A collection that fails is recorded and skipped; its siblings'
// queries are unaffected. An empty result is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, collections []string, minScore float64, initialLimit int) (*RetrievalResult, error) {
	queryVector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &EmbedError{Err: err}
	}

	// Fan-out: one goroutine per collection, each with its own result slot
	// so a failing branch cannot disturb the others.
	results := make([][]index.Point, len(collections))
	errs := make([]error, len(collections))

	var wg sync.WaitGroup
	wg.Add(len(collections))
	for i, collection := range collections {
		go func(i int, collection string) {
			defer wg.Done()
			results[i], errs[i] = r.searcher.Search(ctx, collection, queryVector, initialLimit, minScore)
		}(i, collection)
	}
	wg.Wait()

	result := &RetrievalResult{
		QueryVector:  queryVector,
		InitialLimit: initialLimit,
	}

	// Merge in input order first (collection iteration order, then
	// per-collection rank), then stable-sort by score. Ties keep their
	// input order, which makes the merge deterministic.
	for i, collection := range collections {
		if errs[i] != nil {
			slog.Warn("collection search failed",
				"collection", collection,
				"error", errs[i],
			)
			result.FailedCollections = append(result.FailedCollections, collection)
			continue
		}
		for _, p := range results[i] {
			// Search implementations are asked to apply the threshold
			// server-side; enforce it here as well so the invariant holds
			// regardless of backend.
			if p.Score < minScore {
				continue
			}
			result.Candidates = append(result.Candidates, model.Candidate{
				ID:         p.ID,
				Text:       p.Text,
				Vector:     p.Vector,
				Score:      p.Score,
				Collection: collection,
				Meta:       p.Meta,
			})
		}
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		return result.Candidates[i].Score > result.Candidates[j].Score
	})

	return result, nil
}
