package handler

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/fiqhlab/shariah-qa/internal/index"
	"github.com/fiqhlab/shariah-qa/internal/model"
)

// CollectionsHandler serves the collection discovery and analytics
// endpoints.
type CollectionsHandler struct {
	registry index.Registry
	stats    index.StatsProvider
}

// NewCollectionsHandler creates a new CollectionsHandler. stats may be nil
// when the backend does not expose per-collection counts.
func NewCollectionsHandler(registry index.Registry, stats index.StatsProvider) *CollectionsHandler {
	return &CollectionsHandler{registry: registry, stats: stats}
}

// List handles GET /collections.
func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.registry.ListCollections(r.Context())
	if err != nil {
		slog.Error("failed to list collections", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "could not list collections")
		return
	}
	sort.Strings(names)

	writeJSON(w, http.StatusOK, model.CollectionsResponse{
		Collections: names,
		Total:       len(names),
	})
}

// Analytics handles GET /analytics. A collection whose stats cannot be read
// is reported with a zero count rather than failing the whole response.
func (h *CollectionsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusNotImplemented, "not_supported", "analytics not available for this backend")
		return
	}

	names, err := h.registry.ListCollections(r.Context())
	if err != nil {
		slog.Error("failed to list collections", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "could not list collections")
		return
	}
	sort.Strings(names)

	resp := model.AnalyticsResponse{
		TotalCollections: len(names),
		Collections:      make([]model.CollectionStats, 0, len(names)),
	}
	for _, name := range names {
		stats, err := h.stats.CollectionStats(r.Context(), name)
		if err != nil {
			slog.Warn("failed to read collection stats", "collection", name, "error", err)
			stats = &model.CollectionStats{CollectionName: name}
		}
		resp.Collections = append(resp.Collections, *stats)
		resp.TotalChunks += stats.TotalChunks
	}

	writeJSON(w, http.StatusOK, resp)
}
