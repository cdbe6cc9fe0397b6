package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/kura/internal/log"
)

const storeTimeout = 30 * time.Second

// Store persists records and their vectors in PostgreSQL + pgvector,
// scoped to a namespace. Writes merge by record ID, so re-ingesting a page
// updates its chunks in place.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
	logger    log.Logger
}

// NewStore creates a Store writing to and reading from the given
// namespace.
func NewStore(pool *pgxpool.Pool, namespace string, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, namespace: namespace, logger: logger}, nil
}

// upsertRow is one record ready for the database, with its vector attached.
type upsertRow struct {
	id        string
	content   string
	metadata  map[string]string
	embedding pgvector.Vector
}

// buildUpsertRows pairs records with their vectors by index and drops
// records whose vector is nil. The two slices must correspond one-to-one.
func buildUpsertRows(records []Record, vectors [][]float32) ([]upsertRow, int, error) {
	if len(records) != len(vectors) {
		return nil, 0, fmt.Errorf("records and vectors length mismatch: %d != %d", len(records), len(vectors))
	}

	rows := make([]upsertRow, 0, len(records))
	dropped := 0
	for i, rec := range records {
		if vectors[i] == nil {
			dropped++
			continue
		}
		metadata := map[string]string{
			"url":     rec.URL,
			"title":   rec.Title,
			"content": rec.Content,
			"source":  rec.Source,
		}
		if rec.Summary != "" {
			metadata["summary"] = rec.Summary
		}
		rows = append(rows, upsertRow{
			id:        rec.ID,
			content:   rec.Content,
			metadata:  metadata,
			embedding: pgvector.NewVector(vectors[i]),
		})
	}
	return rows, dropped, nil
}

const upsertSQL = `INSERT INTO records (id, namespace, content, metadata, embedding, updated_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (id) DO UPDATE SET
		namespace = EXCLUDED.namespace,
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding,
		updated_at = now()`

// Upsert writes records whose vector is present and skips the rest,
// reporting both counts. vectors must correspond to records by index, as
// produced by Batcher.EmbedBatch. An all-nil vector batch is a no-op with
// every record counted as dropped.
func (s *Store) Upsert(ctx context.Context, records []Record, vectors [][]float32) (UpsertResult, error) {
	rows, dropped, err := buildUpsertRows(records, vectors)
	if err != nil {
		return UpsertResult{}, err
	}
	if dropped > 0 {
		s.logger.Warn("skipping records without embeddings", "dropped", dropped, "total", len(records))
	}
	if len(rows) == 0 {
		return UpsertResult{Dropped: dropped}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertSQL, row.id, s.namespace, row.content, row.metadata, row.embedding)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			return UpsertResult{}, fmt.Errorf("upserting record %s: %w", rows[i].id, err)
		}
	}

	return UpsertResult{Accepted: len(rows), Dropped: dropped}, nil
}

// Query returns the topK stored records nearest to the query vector by
// cosine distance, most similar first.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		 FROM records
		 WHERE namespace = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector), s.namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Content, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// Count reports how many records the namespace holds.
func (s *Store) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE namespace = $1`, s.namespace).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// DeleteNamespace removes every record in the namespace and reports how
// many were deleted. Used by full re-ingestion before writing fresh
// records.
func (s *Store) DeleteNamespace(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE namespace = $1`, s.namespace)
	if err != nil {
		return 0, fmt.Errorf("deleting namespace %s: %w", s.namespace, err)
	}
	return tag.RowsAffected(), nil
}
