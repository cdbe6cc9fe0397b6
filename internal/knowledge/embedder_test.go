package knowledge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/knowledge"
	"github.com/koopa0/kura/internal/testutil"
)

func newBatcher(t *testing.T, mock *testutil.MockEmbedder) *knowledge.Batcher {
	t.Helper()
	g := genkit.Init(context.Background())
	b, err := knowledge.NewBatcher(mock.RegisterEmbedder(g), testutil.DiscardLogger())
	require.NoError(t, err)
	return b
}

func TestEmbedBatch(t *testing.T) {
	mock := testutil.NewMockEmbedder(config.VectorDimension)
	b := newBatcher(t, mock)

	texts := []string{"first chunk", "second chunk", "first chunk"}
	vectors := b.EmbedBatch(context.Background(), texts)

	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Len(t, v, config.VectorDimension, "vector %d", i)
	}
	assert.Equal(t, vectors[0], vectors[2], "same text embeds identically")
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestEmbedBatchProviderFailure(t *testing.T) {
	mock := testutil.NewMockEmbedder(config.VectorDimension)
	mock.FailWith(errors.New("quota exceeded"))
	b := newBatcher(t, mock)

	texts := []string{"a", "b", "c"}
	vectors := b.EmbedBatch(context.Background(), texts)

	require.Len(t, vectors, 3, "one entry per input even on failure")
	for i, v := range vectors {
		assert.Nil(t, v, "entry %d", i)
	}
}

func TestEmbedBatchWrongDimensionality(t *testing.T) {
	mock := testutil.NewMockEmbedder(8)
	b := newBatcher(t, mock)

	vectors := b.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Len(t, vectors, 2)
	assert.Nil(t, vectors[0])
	assert.Nil(t, vectors[1])
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	mock := testutil.NewMockEmbedder(config.VectorDimension)
	b := newBatcher(t, mock)

	assert.Empty(t, b.EmbedBatch(context.Background(), nil))
	assert.Equal(t, 0, mock.Calls(), "no provider call for empty batch")
}

func TestEmbedQuery(t *testing.T) {
	mock := testutil.NewMockEmbedder(config.VectorDimension)
	b := newBatcher(t, mock)

	vec, err := b.EmbedQuery(context.Background(), "what are the fees?")
	require.NoError(t, err)
	assert.Len(t, vec, config.VectorDimension)
}

func TestEmbedQueryFailure(t *testing.T) {
	mock := testutil.NewMockEmbedder(config.VectorDimension)
	mock.FailWith(errors.New("provider down"))
	b := newBatcher(t, mock)

	_, err := b.EmbedQuery(context.Background(), "anything")
	require.Error(t, err)
}

func TestNewBatcherRequiresEmbedder(t *testing.T) {
	_, err := knowledge.NewBatcher(nil, testutil.DiscardLogger())
	require.Error(t, err)
}
