// Package index defines the vector-index capability contracts the retrieval
// core depends on. Implementations live in subpackages; the core never sees
// a concrete store.
package index

import (
	"context"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

// Point is one stored passage returned by a nearest-neighbor search,
// ranked by similarity. Vector is the stored embedding and is required by
// downstream diversity ranking.
type Point struct {
	ID     string
	Score  float64
	Text   string
	Vector []float32
	Meta   model.PassageMetadata
}

// Searcher is the per-collection nearest-neighbor search capability.
// A missing or corrupt collection returns an error for that call only;
// implementations must be safe for unlimited concurrent readers.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]Point, error)
}

// Registry lists the collections currently available in the store. Used to
// expand the "all" collection selector.
type Registry interface {
	ListCollections(ctx context.Context) ([]string, error)
}

// StatsProvider is an optional capability for the analytics endpoint.
type StatsProvider interface {
	CollectionStats(ctx context.Context, collection string) (*model.CollectionStats, error)
}

// Store combines the capabilities a backend must provide to serve queries.
type Store interface {
	Searcher
	Registry
}
