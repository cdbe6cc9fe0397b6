package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/knowledge"
	"github.com/koopa0/kura/internal/testutil"
)

func orthogonalVector(axis int) []float32 {
	v := make([]float32, config.VectorDimension)
	v[axis] = 1
	return v
}

func TestStoreUpsertAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := knowledge.NewStore(db.Pool, "default", testutil.DiscardLogger())
	require.NoError(t, err)

	records := []knowledge.Record{
		{ID: "https://e.com/a-chunk0", URL: "https://e.com/a", Title: "Fees", Content: "The annual fee is zero.", Source: knowledge.SourceCrawl},
		{ID: "https://e.com/a-chunk1", URL: "https://e.com/a", Title: "Fees", Content: "Late payments incur interest.", Source: knowledge.SourceCrawl},
		{ID: "https://e.com/b-chunk0", URL: "https://e.com/b", Title: "Rates", Content: "Variable rates start at 7.99%.", Source: knowledge.SourceCrawl},
	}
	vectors := [][]float32{
		orthogonalVector(0),
		nil, // embedding failed for this chunk
		orthogonalVector(1),
	}

	result, err := store.Upsert(ctx, records, vectors)
	require.NoError(t, err)
	assert.Equal(t, knowledge.UpsertResult{Accepted: 2, Dropped: 1}, result)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Nearest to axis 0 is the fees chunk.
	matches, err := store.Query(ctx, orthogonalVector(0), 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "https://e.com/a-chunk0", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "The annual fee is zero.", matches[0].Content)
	assert.Equal(t, "https://e.com/a", matches[0].Metadata["url"])
	assert.Equal(t, "Fees", matches[0].Metadata["title"])
	assert.Equal(t, "crawl", matches[0].Metadata["source"])
}

func TestStoreUpsertMergesByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := knowledge.NewStore(db.Pool, "default", testutil.DiscardLogger())
	require.NoError(t, err)

	rec := knowledge.Record{ID: "https://e.com/p-chunk0", URL: "https://e.com/p", Title: "Old", Content: "old content", Source: knowledge.SourceCrawl}
	_, err = store.Upsert(ctx, []knowledge.Record{rec}, [][]float32{orthogonalVector(0)})
	require.NoError(t, err)

	rec.Title = "New"
	rec.Content = "new content"
	result, err := store.Upsert(ctx, []knowledge.Record{rec}, [][]float32{orthogonalVector(0)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "same ID updates in place")

	matches, err := store.Query(ctx, orthogonalVector(0), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new content", matches[0].Content)
	assert.Equal(t, "New", matches[0].Metadata["title"])
}

func TestStoreNamespaceIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first, err := knowledge.NewStore(db.Pool, "first", testutil.DiscardLogger())
	require.NoError(t, err)
	second, err := knowledge.NewStore(db.Pool, "second", testutil.DiscardLogger())
	require.NoError(t, err)

	rec := knowledge.Record{ID: "https://e.com/x-chunk0", URL: "https://e.com/x", Content: "content", Source: knowledge.SourceCrawl}
	_, err = first.Upsert(ctx, []knowledge.Record{rec}, [][]float32{orthogonalVector(0)})
	require.NoError(t, err)

	matches, err := second.Query(ctx, orthogonalVector(0), 5)
	require.NoError(t, err)
	assert.Empty(t, matches, "other namespaces stay invisible")

	deleted, err := first.DeleteNamespace(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	count, err := first.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreUpsertAllNilIsNoOp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := knowledge.NewStore(db.Pool, "default", testutil.DiscardLogger())
	require.NoError(t, err)

	records := []knowledge.Record{{ID: "a"}, {ID: "b"}}
	result, err := store.Upsert(ctx, records, make([][]float32, 2))
	require.NoError(t, err)
	assert.Equal(t, knowledge.UpsertResult{Accepted: 0, Dropped: 2}, result)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
