package service

import (
	"math"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

// SelectDiverse picks up to finalCount candidates using Maximal Marginal
// Relevance. At each step every remaining candidate is scored as
//
//	mmr = w*relevance - (1-w)*maxSimilarityToSelected
//
// where relevance is the candidate's query-similarity score and the
// similarity term is the highest cosine similarity against anything already
// selected (0 while nothing is selected). w=1 degenerates to plain top-K by
// score; w=0 ignores relevance entirely.
//
// Ties are broken by original candidate order, and a passage id never
// appears twice in the output, so the selection is deterministic.
func SelectDiverse(candidates []model.Candidate, finalCount int, diversityWeight float64) []model.Candidate {
	if len(candidates) == 0 || finalCount <= 0 {
		return nil
	}

	remaining := make([]bool, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for i, c := range candidates {
		if seen[c.ID] {
			continue // duplicate passage, e.g. indexed into two collections
		}
		seen[c.ID] = true
		remaining[i] = true
	}

	var selected []model.Candidate
	var selectedVecs [][]float32

	for len(selected) < finalCount {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, ok := range remaining {
			if !ok {
				continue
			}
			maxSim := 0.0
			for _, sv := range selectedVecs {
				if sim := cosineSimilarity(candidates[i].Vector, sv); sim > maxSim {
					maxSim = sim
				}
			}
			score := diversityWeight*candidates[i].Score - (1-diversityWeight)*maxSim
			// Strict comparison keeps the earliest candidate on ties.
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}
		remaining[bestIdx] = false
		selected = append(selected, candidates[bestIdx])
		selectedVecs = append(selectedVecs, candidates[bestIdx].Vector)
	}

	return selected
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty or zero-length.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
