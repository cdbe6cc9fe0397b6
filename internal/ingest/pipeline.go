package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/koopa0/kura/internal/cleanse"
	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/knowledge"
	"github.com/koopa0/kura/internal/log"
)

// embedBatchSize caps how many chunks go to the embedding provider in one
// call.
const embedBatchSize = 100

// PageSource produces crawled pages.
type PageSource interface {
	Crawl(ctx context.Context) ([]Page, *CrawlStats, error)
}

// Embedder embeds chunk contents, one vector per input with nil marking a
// failure.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) [][]float32
}

// RecordStore persists embedded records.
type RecordStore interface {
	Upsert(ctx context.Context, records []knowledge.Record, vectors [][]float32) (knowledge.UpsertResult, error)
	DeleteNamespace(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Document is one content item headed for the knowledge base, either a
// crawled page or an externally sourced search result.
type Document struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Content string   `json:"content"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Source  string   `json:"source,omitempty"`
}

// Result summarizes an ingestion run.
type Result struct {
	Pages    int   // content items processed
	Records  int   // chunks produced
	Accepted int   // chunks written with vectors
	Dropped  int   // chunks lost to embedding failures
	Replaced int64 // records deleted by a --replace run
	Total    int64 // records in the namespace afterwards
}

// Pipeline drives content from a page source through cleansing, chunking,
// embedding, and storage.
type Pipeline struct {
	source        PageSource
	cleanser      cleanse.Cleanser
	embedder      Embedder
	store         RecordStore
	maxChunkChars int
	limiter       *rate.Limiter
	logger        log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxChunkChars overrides the chunk size bound.
func WithMaxChunkChars(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxChunkChars = n
		}
	}
}

// WithCleanseRate throttles model cleansing to r calls per second. Zero or
// negative disables throttling.
func WithCleanseRate(r float64) Option {
	return func(p *Pipeline) {
		if r > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(r), 1)
		}
	}
}

// NewPipeline assembles an ingestion pipeline. source may be nil when only
// IngestDocuments is used.
func NewPipeline(source PageSource, cleanser cleanse.Cleanser, embedder Embedder, store RecordStore, logger log.Logger, opts ...Option) (*Pipeline, error) {
	if cleanser == nil {
		return nil, fmt.Errorf("cleanser is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	p := &Pipeline{
		source:        source,
		cleanser:      cleanser,
		embedder:      embedder,
		store:         store,
		maxChunkChars: config.DefaultMaxChunkChars,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run crawls the source and ingests every accepted page. With replace set,
// the namespace is emptied first so the run becomes the namespace's full
// contents; otherwise records merge by ID.
func (p *Pipeline) Run(ctx context.Context, replace bool) (Result, error) {
	if p.source == nil {
		return Result{}, fmt.Errorf("no page source configured")
	}

	pages, _, err := p.source.Crawl(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("crawling: %w", err)
	}

	docs := make([]Document, 0, len(pages))
	for _, page := range pages {
		docs = append(docs, Document{
			Title:   page.Title,
			URL:     page.URL,
			Content: page.Text,
			Summary: page.Description,
			Source:  knowledge.SourceCrawl,
		})
	}
	return p.ingest(ctx, docs, replace)
}

// IngestDocuments ingests externally sourced documents, merging into the
// namespace by record ID.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []Document) (Result, error) {
	return p.ingest(ctx, docs, false)
}

func (p *Pipeline) ingest(ctx context.Context, docs []Document, replace bool) (Result, error) {
	var result Result
	runLog := p.logger.With("run_id", uuid.NewString())
	started := time.Now()

	if replace {
		deleted, err := p.store.DeleteNamespace(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("clearing namespace: %w", err)
		}
		result.Replaced = deleted
		runLog.Info("cleared namespace before ingest", "deleted", deleted)
	}

	var records []knowledge.Record
	for _, doc := range docs {
		if doc.URL == "" {
			runLog.Warn("skipping document without URL", "title", doc.Title)
			continue
		}
		if err := p.throttle(ctx); err != nil {
			return result, err
		}

		cleaned := p.cleanser.Cleanse(ctx, doc.Content)
		base := knowledge.Record{
			Title:   doc.Title,
			URL:     doc.URL,
			Content: cleaned,
			Summary: doc.Summary,
			Tags:    doc.Tags,
			Source:  doc.Source,
		}
		built := knowledge.BuildRecords(base, p.maxChunkChars)
		if len(built) == 0 {
			runLog.Warn("document produced no chunks", "url", doc.URL)
			continue
		}
		records = append(records, built...)
		result.Pages++
	}
	result.Records = len(records)

	for start := 0; start < len(records); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+embedBatchSize, len(records))
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Content
		}
		vectors := p.embedder.EmbedBatch(ctx, texts)

		upserted, err := p.store.Upsert(ctx, batch, vectors)
		if err != nil {
			return result, fmt.Errorf("storing records: %w", err)
		}
		result.Accepted += upserted.Accepted
		result.Dropped += upserted.Dropped
	}

	total, err := p.store.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("counting records: %w", err)
	}
	result.Total = total

	runLog.Info("ingest finished",
		"pages", result.Pages,
		"records", result.Records,
		"accepted", result.Accepted,
		"dropped", result.Dropped,
		"total", result.Total,
		"duration", time.Since(started))
	return result, nil
}

func (p *Pipeline) throttle(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
