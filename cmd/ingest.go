package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koopa0/kura/internal/app"
	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/ingest"
	"github.com/koopa0/kura/internal/knowledge"
)

// runIngest crawls the configured site and rebuilds the knowledge base.
func runIngest() error {
	ingestFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFlags.SetOutput(os.Stderr)
	replace := ingestFlags.Bool("replace", false, "clear the namespace before storing new records")
	verify := ingestFlags.Bool("verify", false, "run a retrieval probe after ingestion")
	fromFile := ingestFlags.String("from-file", "", "ingest documents from a JSON file instead of crawling")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := ingestFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing ingest flags: %w", err)
	}
	if *fromFile != "" && *replace {
		return errors.New("--from-file merges into the existing namespace; it cannot be combined with --replace")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *fromFile != "" {
		// File ingestion needs no crawl settings.
		err = cfg.Validate()
	} else {
		err = cfg.ValidateIngest()
	}
	if err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := defaultLogger()
	if *fromFile != "" {
		logger.Info("starting ingestion", "from_file", *fromFile, "namespace", cfg.Namespace)
	} else {
		logger.Info("starting ingestion",
			"root_url", cfg.Crawl.RootURL,
			"namespace", cfg.Namespace,
			"replace", *replace,
		)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	var result ingest.Result
	if *fromFile != "" {
		docs, err := loadDocuments(*fromFile)
		if err != nil {
			return err
		}
		pipeline, err := a.NewDocumentPipeline()
		if err != nil {
			return fmt.Errorf("creating pipeline: %w", err)
		}
		result, err = pipeline.IngestDocuments(ctx, docs)
		if err != nil {
			return fmt.Errorf("running ingestion: %w", err)
		}
	} else {
		pipeline, err := a.NewPipeline()
		if err != nil {
			return fmt.Errorf("creating pipeline: %w", err)
		}
		result, err = pipeline.Run(ctx, *replace)
		if err != nil {
			return fmt.Errorf("running ingestion: %w", err)
		}
	}

	fmt.Printf("Crawled pages:   %d\n", result.Pages)
	fmt.Printf("Built records:   %d\n", result.Records)
	fmt.Printf("Stored vectors:  %d\n", result.Accepted)
	fmt.Printf("Dropped records: %d\n", result.Dropped)
	fmt.Printf("Total in store:  %d\n", result.Total)

	if *verify {
		if err := verifyRetrieval(ctx, a); err != nil {
			return fmt.Errorf("verifying retrieval: %w", err)
		}
	}
	return nil
}

// loadDocuments reads a JSON array of documents from path. Documents
// without a source are tagged as search results, the non-crawl origin.
func loadDocuments(path string) ([]ingest.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading documents file: %w", err)
	}

	var docs []ingest.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing documents file: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("documents file %s is empty", path)
	}

	for i := range docs {
		if strings.TrimSpace(docs[i].URL) == "" {
			return nil, fmt.Errorf("document %d has no url", i)
		}
		if docs[i].Source == "" {
			docs[i].Source = knowledge.SourceSearch
		}
	}
	return docs, nil
}

// errNoMatches is returned by the retrieval probe when the store answers
// with nothing, which means ingestion produced an unusable knowledge base.
var errNoMatches = errors.New("retrieval probe returned no matches")

// verifyRetrieval embeds a probe question and checks that the store
// returns at least one match for it.
func verifyRetrieval(ctx context.Context, a *app.App) error {
	const probe = "What does this service do?"

	vector, err := a.Batcher.EmbedQuery(ctx, probe)
	if err != nil {
		return fmt.Errorf("embedding probe: %w", err)
	}

	matches, err := a.Store.Query(ctx, vector, a.Config.TopK)
	if err != nil {
		return fmt.Errorf("querying store: %w", err)
	}
	if len(matches) == 0 {
		return errNoMatches
	}

	fmt.Printf("Verify: %d matches, best score %.3f (%s)\n",
		len(matches), matches[0].Score, matches[0].ID)
	return nil
}
