// Package app assembles the application: configuration, database pool,
// Genkit provider, and the ingestion and answering components built on
// them.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/kura/internal/answer"
	"github.com/koopa0/kura/internal/cleanse"
	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/ingest"
	"github.com/koopa0/kura/internal/knowledge"
	"github.com/koopa0/kura/internal/log"
)

// App holds the wired application components. Create with Setup, release
// with Close.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool
	Store    *knowledge.Store
	Batcher  *knowledge.Batcher
	Cleanser cleanse.Cleanser
	Answerer *answer.Answerer

	otelCleanup func()
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// NewPipeline builds an ingestion pipeline with a crawler configured from
// the crawl settings. The caller validates those settings first.
func (a *App) NewPipeline() (*ingest.Pipeline, error) {
	crawler, err := ingest.NewCrawler(a.Config.Crawl, a.Logger)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(crawler, a.Cleanser, a.Batcher, a.Store, a.Logger,
		ingest.WithMaxChunkChars(a.Config.MaxChunkChars),
		ingest.WithCleanseRate(1),
	)
}

// NewDocumentPipeline builds a pipeline without a crawler, for ingesting
// documents that arrive ready-made (a file, a search export). Run on it
// errors; use IngestDocuments.
func (a *App) NewDocumentPipeline() (*ingest.Pipeline, error) {
	return ingest.NewPipeline(nil, a.Cleanser, a.Batcher, a.Store, a.Logger,
		ingest.WithMaxChunkChars(a.Config.MaxChunkChars),
		ingest.WithCleanseRate(1),
	)
}
