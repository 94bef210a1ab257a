// Package pgvecindex implements the index capabilities on Postgres with the
// pgvector extension, for deployments that keep passages next to the rest
// of their data instead of in a dedicated vector store.
package pgvecindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/fiqhlab/shariah-qa/internal/index"
	"github.com/fiqhlab/shariah-qa/internal/model"
)

const (
	maxRetries    = 10
	retryBaseWait = 1 * time.Second
	retryMaxWait  = 10 * time.Second
)

// Index is a pgvector-backed index.Store.
type Index struct {
	pool *pgxpool.Pool
}

// Connect creates a pooled connection with retry and exponential backoff,
// then verifies the passages table is reachable.
func Connect(ctx context.Context, databaseURL string) (*Index, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	wait := retryBaseWait

	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				slog.Info("database connected", "attempt", attempt)
				return &Index{pool: pool}, nil
			} else {
				err = pingErr
				pool.Close()
			}
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxRetries, err)
		}

		slog.Warn("database connection failed, retrying",
			"attempt", attempt,
			"max_retries", maxRetries,
			"wait", wait.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during DB connect: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait = wait * 2
		if wait > retryMaxWait {
			wait = retryMaxWait
		}
	}

	return nil, fmt.Errorf("database connection failed: %w", err)
}

// Search performs cosine similarity search over one collection using the
// pgvector HNSW index. Score is 1 - cosine distance, matching the range the
// rest of the pipeline expects.
func (ix *Index) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]index.Point, error) {
	query := `
		SELECT
			p.passage_id,
			p.title,
			coalesce(p.url, ''),
			p.chunk_index,
			p.total_chunks,
			coalesce(p.doc_date, ''),
			coalesce(p.document_type, ''),
			coalesce(p.resolution_number, ''),
			coalesce(p.page_number, 0),
			coalesce(p.page_confidence, ''),
			p.text,
			p.embedding,
			1 - (p.embedding <=> $2) AS score
		FROM passages p
		WHERE p.collection = $1
		  AND 1 - (p.embedding <=> $2) >= $3
		ORDER BY p.embedding <=> $2
		LIMIT $4
	`

	vec := pgvector.NewVector(vector)
	rows, err := ix.pool.Query(ctx, query, collection, vec, minScore, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query %q: %w", collection, err)
	}
	defer rows.Close()

	var points []index.Point
	for rows.Next() {
		var p index.Point
		var embedding pgvector.Vector

		err := rows.Scan(
			&p.ID,
			&p.Meta.Title,
			&p.Meta.URL,
			&p.Meta.ChunkIndex,
			&p.Meta.TotalChunks,
			&p.Meta.Date,
			&p.Meta.DocumentType,
			&p.Meta.ResolutionNumber,
			&p.Meta.PageNumber,
			&p.Meta.PageConfidence,
			&p.Text,
			&embedding,
			&p.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}

		p.Vector = embedding.Slice()
		p.Meta.Collection = collection
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector rows iteration: %w", err)
	}

	return points, nil
}

// ListCollections returns the distinct collection names present in the
// passages table.
func (ix *Index) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := ix.pool.Query(ctx,
		`SELECT DISTINCT collection FROM passages ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collection rows iteration: %w", err)
	}
	return names, nil
}

// CollectionStats reports the passage count for one collection.
func (ix *Index) CollectionStats(ctx context.Context, collection string) (*model.CollectionStats, error) {
	var count int64
	err := ix.pool.QueryRow(ctx,
		`SELECT count(*) FROM passages WHERE collection = $1`, collection,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count passages %q: %w", collection, err)
	}
	return &model.CollectionStats{
		CollectionName: collection,
		TotalChunks:    count,
	}, nil
}

// Health pings the pool.
func (ix *Index) Health(ctx context.Context) error {
	return ix.pool.Ping(ctx)
}

// Close closes the pool.
func (ix *Index) Close() {
	ix.pool.Close()
}
