package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"

	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/log"
)

const embedTimeout = 30 * time.Second

// Batcher embeds record content in batches through a Genkit embedder,
// pinning the output dimensionality to what the vector store expects.
type Batcher struct {
	embedder ai.Embedder
	dim      int
	logger   log.Logger
}

// NewBatcher creates a Batcher producing vectors of config.VectorDimension
// dimensions.
func NewBatcher(embedder ai.Embedder, logger log.Logger) (*Batcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Batcher{embedder: embedder, dim: config.VectorDimension, logger: logger}, nil
}

// EmbedBatch embeds texts in one provider call. The result always has one
// entry per input text, in input order. When the provider call fails or
// returns a malformed response, every entry is nil and ingestion continues;
// individual vectors with the wrong dimensionality also come back nil.
// EmbedBatch never returns an error: a lost batch costs those chunks, not
// the run.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	dim := int32(b.dim)
	resp, err := b.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		b.logger.Error("batch embedding failed", "batch_size", len(texts), "error", err)
		return vectors
	}
	if len(resp.Embeddings) != len(texts) {
		b.logger.Error("embedding count mismatch", "want", len(texts), "got", len(resp.Embeddings))
		return vectors
	}

	for i, e := range resp.Embeddings {
		if len(e.Embedding) != b.dim {
			b.logger.Warn("dropping embedding with wrong dimensionality",
				"index", i, "want", b.dim, "got", len(e.Embedding))
			continue
		}
		vectors[i] = e.Embedding
	}
	return vectors
}

// EmbedQuery embeds a single query string. Unlike EmbedBatch, a failure
// here is fatal to the caller: answering cannot proceed without a query
// vector.
func (b *Batcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	dim := int32(b.dim)
	resp, err := b.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(query, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	vec := resp.Embeddings[0].Embedding
	if len(vec) != b.dim {
		return nil, fmt.Errorf("query embedding has %d dimensions, want %d", len(vec), b.dim)
	}
	return vec, nil
}
