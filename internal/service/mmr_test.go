package service

import (
	"math"
	"testing"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

func TestSelectDiverse_Empty(t *testing.T) {
	if got := SelectDiverse(nil, 5, 0.7); len(got) != 0 {
		t.Errorf("expected no selection, got %d", len(got))
	}
}

func TestSelectDiverse_ZeroFinalCount(t *testing.T) {
	candidates := []model.Candidate{{ID: "a", Score: 0.9}}
	if got := SelectDiverse(candidates, 0, 0.7); len(got) != 0 {
		t.Errorf("expected no selection, got %d", len(got))
	}
}

func TestSelectDiverse_FewerThanRequested(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Score: 0.9, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.8, Vector: []float32{0, 1}},
	}
	got := SelectDiverse(candidates, 5, 0.7)
	if len(got) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(got))
	}
}

func TestSelectDiverse_FirstPickIsTopScore(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Score: 0.95, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.90, Vector: []float32{0, 1}},
		{ID: "c", Score: 0.85, Vector: []float32{1, 1}},
	}
	got := SelectDiverse(candidates, 2, 0.7)
	if got[0].ID != "a" {
		t.Errorf("expected first pick 'a', got %q", got[0].ID)
	}
}

func TestSelectDiverse_PenalizesNearDuplicates(t *testing.T) {
	// "b" is almost identical to "a" and only marginally higher-scored
	// than "c"; with diversity active, "c" should win the second slot.
	candidates := []model.Candidate{
		{ID: "a", Score: 0.95, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.90, Vector: []float32{1, 0.01}},
		{ID: "c", Score: 0.85, Vector: []float32{0, 1}},
	}
	got := SelectDiverse(candidates, 2, 0.5)
	if len(got) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(got))
	}
	if got[1].ID != "c" {
		t.Errorf("expected diverse second pick 'c', got %q", got[1].ID)
	}
}

func TestSelectDiverse_WeightOneIsPlainTopK(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Score: 0.95, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.90, Vector: []float32{1, 0}},
		{ID: "c", Score: 0.85, Vector: []float32{0, 1}},
	}
	got := SelectDiverse(candidates, 2, 1.0)
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("expected [a b], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestSelectDiverse_DropsDuplicateIDs(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Score: 0.95, Vector: []float32{1, 0}, Collection: "first"},
		{ID: "a", Score: 0.90, Vector: []float32{1, 0}, Collection: "second"},
		{ID: "b", Score: 0.85, Vector: []float32{0, 1}},
	}
	got := SelectDiverse(candidates, 3, 0.7)
	if len(got) != 2 {
		t.Fatalf("expected duplicate id collapsed to 2 picks, got %d", len(got))
	}
	if got[0].Collection != "first" {
		t.Errorf("expected first occurrence kept, got collection %q", got[0].Collection)
	}
}

func TestSelectDiverse_TieKeepsInputOrder(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Score: 0.9, Vector: []float32{1, 0}},
		{ID: "b", Score: 0.9, Vector: []float32{0, 1}},
	}
	got := SelectDiverse(candidates, 1, 0.7)
	if got[0].ID != "a" {
		t.Errorf("expected earliest candidate on tie, got %q", got[0].ID)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if sim := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical vectors: expected 1.0, got %f", sim)
	}
	if sim := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(sim) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 0.0, got %f", sim)
	}
	if sim := cosineSimilarity(nil, []float32{1, 0}); sim != 0 {
		t.Errorf("empty vector: expected 0, got %f", sim)
	}
	if sim := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); sim != 0 {
		t.Errorf("length mismatch: expected 0, got %f", sim)
	}
	if sim := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); sim != 0 {
		t.Errorf("zero-norm vector: expected 0, got %f", sim)
	}
}
