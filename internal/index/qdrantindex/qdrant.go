// Package qdrantindex implements the index capabilities on top of a Qdrant
// server, which is where the scraping pipeline writes its passages.
package qdrantindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/fiqhlab/shariah-qa/internal/index"
	"github.com/fiqhlab/shariah-qa/internal/model"
)

// payload keys written at index time by the scraper.
const (
	keyText             = "chunk_text"
	keyTitle            = "pdf_title"
	keyURL              = "pdf_url"
	keyDate             = "date"
	keyChunkIndex       = "chunk_index"
	keyTotalChunks      = "total_chunks"
	keyDocumentType     = "document_type"
	keyResolutionNumber = "resolution_number"
	keyPageNumber       = "page_number"
	keyPageConfidence   = "page_confidence"
)

// Index is a Qdrant-backed index.Store.
type Index struct {
	client *qd.Client
}

// Config holds Qdrant connection settings.
type Config struct {
	// URL of the Qdrant gRPC endpoint, e.g. "http://localhost:6334".
	URL    string
	APIKey string
}

// New connects to Qdrant.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant URL: %w", err)
	}

	port := 6334
	if parsed.Port() != "" {
		p, err := strconv.Atoi(parsed.Port())
		if err != nil {
			return nil, fmt.Errorf("parse qdrant port: %w", err)
		}
		port = p
	}

	client, err := qd.NewClient(&qd.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Index{client: client}, nil
}

// Search runs a cosine-similarity query against one collection. The score
// threshold is applied server-side; payload and stored vectors are returned
// so the caller can re-rank without re-embedding.
func (ix *Index) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]index.Point, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}

	req := &qd.QueryPoints{
		CollectionName: collection,
		Query:          qd.NewQuery(vector...),
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(true),
	}
	if topK > 0 {
		req.Limit = qd.PtrOf(uint64(topK))
	}
	if minScore > 0 {
		req.ScoreThreshold = qd.PtrOf(float32(minScore))
	}

	scored, err := ix.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query %q: %w", collection, err)
	}

	points := make([]index.Point, 0, len(scored))
	for _, sp := range scored {
		points = append(points, convertPoint(sp, collection))
	}
	return points, nil
}

// ListCollections returns the collection names present on the server.
func (ix *Index) ListCollections(ctx context.Context) ([]string, error) {
	names, err := ix.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("qdrant list collections: %w", err)
	}
	return names, nil
}

// CollectionStats reports the point count for one collection.
func (ix *Index) CollectionStats(ctx context.Context, collection string) (*model.CollectionStats, error) {
	count, err := ix.client.Count(ctx, &qd.CountPoints{CollectionName: collection})
	if err != nil {
		return nil, fmt.Errorf("qdrant count %q: %w", collection, err)
	}
	return &model.CollectionStats{
		CollectionName: collection,
		TotalChunks:    int64(count),
	}, nil
}

// Health pings the server.
func (ix *Index) Health(ctx context.Context) error {
	if _, err := ix.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (ix *Index) Close() error {
	return ix.client.Close()
}

func convertPoint(sp *qd.ScoredPoint, collection string) index.Point {
	p := index.Point{
		ID:     pointID(sp.GetId()),
		Score:  float64(sp.GetScore()),
		Vector: sp.GetVectors().GetVector().GetData(),
	}

	payload := sp.GetPayload()
	p.Text = getString(payload, keyText)
	p.Meta = model.PassageMetadata{
		Title:            getString(payload, keyTitle),
		URL:              getString(payload, keyURL),
		Collection:       collection,
		Date:             getString(payload, keyDate),
		ChunkIndex:       getInt(payload, keyChunkIndex),
		TotalChunks:      getInt(payload, keyTotalChunks),
		DocumentType:     getString(payload, keyDocumentType),
		ResolutionNumber: getString(payload, keyResolutionNumber),
		PageNumber:       getInt(payload, keyPageNumber),
		PageConfidence:   getString(payload, keyPageConfidence),
	}

	// Preserve payload keys the typed metadata does not know about so they
	// can round-trip to callers.
	known := map[string]bool{
		keyText: true, keyTitle: true, keyURL: true, keyDate: true,
		keyChunkIndex: true, keyTotalChunks: true, keyDocumentType: true,
		keyResolutionNumber: true, keyPageNumber: true, keyPageConfidence: true,
	}
	for key, value := range payload {
		if known[key] {
			continue
		}
		if s := value.GetStringValue(); s != "" {
			if p.Meta.Extra == nil {
				p.Meta.Extra = make(map[string]string)
			}
			p.Meta.Extra[key] = s
		}
	}

	return p
}

func pointID(id *qd.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func getString(payload map[string]*qd.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getInt(payload map[string]*qd.Value, key string) int {
	if v, ok := payload[key]; ok {
		return int(v.GetIntegerValue())
	}
	return 0
}
