package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fiqhlab/shariah-qa/internal/index"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

// fakeSearcher serves canned points per collection and can fail specific
// collections.
type fakeSearcher struct {
	points map[string][]index.Point
	fail   map[string]error
}

func (f *fakeSearcher) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]index.Point, error) {
	if err := f.fail[collection]; err != nil {
		return nil, err
	}
	return f.points[collection], nil
}

func TestInitialLimit_Base(t *testing.T) {
	if got := InitialLimit("riba", 20, 5); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestInitialLimit_TripleFinalWins(t *testing.T) {
	if got := InitialLimit("riba", 20, 10); got != 30 {
		t.Errorf("expected 3x final = 30, got %d", got)
	}
}

func TestInitialLimit_ComplexQuestionStretch(t *testing.T) {
	if got := InitialLimit("What is the ruling on tawarruq?", 20, 5); got != 30 {
		t.Errorf("expected 20*1.5 = 30, got %d", got)
	}
}

func TestIsComplexQuestion(t *testing.T) {
	if isComplexQuestion("riba definition") {
		t.Error("short keyword query should not be complex")
	}
	if !isComplexQuestion("what is riba") {
		t.Error("interrogative marker should flag complexity")
	}
	if !isComplexQuestion("definition of riba?") {
		t.Error("question mark should flag complexity")
	}
	if !isComplexQuestion("a b c d e f g h i j k") {
		t.Error("more than ten words should flag complexity")
	}
}

func TestRetrieve_MergesAndSortsByScore(t *testing.T) {
	searcher := &fakeSearcher{
		points: map[string][]index.Point{
			"alpha": {
				{ID: "a1", Score: 0.7, Text: "a1"},
				{ID: "a2", Score: 0.9, Text: "a2"},
			},
			"beta": {
				{ID: "b1", Score: 0.8, Text: "b1"},
			},
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, searcher)

	got, err := r.Retrieve(context.Background(), "q", []string{"alpha", "beta"}, 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got.Candidates))
	}
	order := []string{"a2", "b1", "a1"}
	for i, want := range order {
		if got.Candidates[i].ID != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got.Candidates[i].ID)
		}
	}
	if got.Candidates[0].Collection != "alpha" {
		t.Errorf("expected provenance 'alpha', got %q", got.Candidates[0].Collection)
	}
}

func TestRetrieve_FiltersBelowMinScore(t *testing.T) {
	searcher := &fakeSearcher{
		points: map[string][]index.Point{
			"alpha": {
				{ID: "keep", Score: 0.6},
				{ID: "drop", Score: 0.4},
			},
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1}}, searcher)

	got, err := r.Retrieve(context.Background(), "q", []string{"alpha"}, 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ID != "keep" {
		t.Fatalf("expected only 'keep' to survive, got %+v", got.Candidates)
	}
}

func TestRetrieve_FailedCollectionIsolated(t *testing.T) {
	searcher := &fakeSearcher{
		points: map[string][]index.Point{
			"alpha": {{ID: "a1", Score: 0.9}},
		},
		fail: map[string]error{
			"beta": errors.New("connection refused"),
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1}}, searcher)

	got, err := r.Retrieve(context.Background(), "q", []string{"alpha", "beta"}, 0.5, 10)
	if err != nil {
		t.Fatalf("one failed collection should not fail the retrieval: %v", err)
	}
	if len(got.Candidates) != 1 {
		t.Errorf("expected survivors from healthy collection, got %d", len(got.Candidates))
	}
	if len(got.FailedCollections) != 1 || got.FailedCollections[0] != "beta" {
		t.Errorf("expected failed collection 'beta', got %v", got.FailedCollections)
	}
}

func TestRetrieve_EmbedFailureIsFatal(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("sidecar down")}, &fakeSearcher{})

	_, err := r.Retrieve(context.Background(), "q", []string{"alpha"}, 0.5, 10)
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
	var embedErr *EmbedError
	if !errors.As(err, &embedErr) {
		t.Errorf("expected *EmbedError, got %T", err)
	}
}

func TestRetrieve_EmptyResultIsNotError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeSearcher{})

	got, err := r.Retrieve(context.Background(), "q", []string{"alpha"}, 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(got.Candidates))
	}
}
