package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

type stubStats struct {
	counts map[string]int64
	fail   map[string]error
}

func (s *stubStats) CollectionStats(ctx context.Context, collection string) (*model.CollectionStats, error) {
	if err := s.fail[collection]; err != nil {
		return nil, err
	}
	return &model.CollectionStats{CollectionName: collection, TotalChunks: s.counts[collection]}, nil
}

func TestCollectionsList(t *testing.T) {
	h := NewCollectionsHandler(&stubStore{names: []string{"sc_resolutions", "bnm_pdfs"}}, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/collections", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp model.CollectionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
	if resp.Collections[0] != "bnm_pdfs" {
		t.Errorf("expected sorted names, got %v", resp.Collections)
	}
}

func TestAnalytics(t *testing.T) {
	store := &stubStore{names: []string{"bnm_pdfs", "sc_resolutions"}}
	stats := &stubStats{counts: map[string]int64{"bnm_pdfs": 120, "sc_resolutions": 45}}
	h := NewCollectionsHandler(store, stats)

	rec := httptest.NewRecorder()
	h.Analytics(rec, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp model.AnalyticsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.TotalCollections != 2 {
		t.Errorf("expected 2 collections, got %d", resp.TotalCollections)
	}
	if resp.TotalChunks != 165 {
		t.Errorf("expected 165 total chunks, got %d", resp.TotalChunks)
	}
}

func TestAnalytics_PartialStatsFailure(t *testing.T) {
	store := &stubStore{names: []string{"bnm_pdfs", "sc_resolutions"}}
	stats := &stubStats{
		counts: map[string]int64{"bnm_pdfs": 120},
		fail:   map[string]error{"sc_resolutions": errors.New("timeout")},
	}
	h := NewCollectionsHandler(store, stats)

	rec := httptest.NewRecorder()
	h.Analytics(rec, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("one failing collection should not fail the endpoint, got %d", rec.Code)
	}

	var resp model.AnalyticsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.TotalChunks != 120 {
		t.Errorf("expected 120 total chunks, got %d", resp.TotalChunks)
	}
	if len(resp.Collections) != 2 {
		t.Errorf("failed collection should still be listed, got %d", len(resp.Collections))
	}
}

func TestAnalytics_NotSupported(t *testing.T) {
	h := NewCollectionsHandler(&stubStore{}, nil)

	rec := httptest.NewRecorder()
	h.Analytics(rec, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", rec.Code)
	}
}
