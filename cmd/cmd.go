// Package cmd provides CLI commands for kura.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ingest: crawl, cleanse, embed, and store the knowledge base
//   - ask: one-shot grounded question answering
//
// Signal handling and graceful shutdown are implemented for all
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/koopa0/kura/internal/log"
)

// Execute is the main entry point for the kura CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest()
	case "ask":
		return runAsk()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// defaultLogger returns the process-wide logger.
func defaultLogger() log.Logger {
	return slog.Default()
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("kura - knowledge-grounded answering service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kura serve [addr]       Start HTTP API server (default: 127.0.0.1:3500)")
	fmt.Println("  kura ingest [flags]     Crawl, cleanse, embed, and store the knowledge base")
	fmt.Println("  kura ask <question>     Answer one question from the knowledge base")
	fmt.Println("  kura --version          Show version information")
	fmt.Println("  kura --help             Show this help")
	fmt.Println()
	fmt.Println("Ingest flags:")
	fmt.Println("  --replace               Clear the namespace before storing new records")
	fmt.Println("  --verify                Run a retrieval probe after ingestion")
	fmt.Println("  --from-file <path>      Ingest documents from a JSON file instead of crawling")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY          Required for the googleai provider")
	fmt.Println("  OPENAI_API_KEY          Required for the openai provider")
	fmt.Println("  DATABASE_URL            PostgreSQL connection URL")
	fmt.Println("  DEBUG                   Optional: enable debug logging")
}
