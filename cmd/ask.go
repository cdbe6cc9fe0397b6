package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koopa0/kura/internal/answer"
	"github.com/koopa0/kura/internal/app"
	"github.com/koopa0/kura/internal/config"
)

// runAsk answers a single question from the knowledge base, streaming
// the response to stdout.
func runAsk() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: kura ask <question>")
	}
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, defaultLogger())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			defaultLogger().Warn("shutdown error", "error", closeErr)
		}
	}()

	messages := []answer.Message{{Role: answer.RoleUser, Content: question}}
	params := answer.Params{MaxTokens: cfg.MaxTokens, Temperature: float64(cfg.Temperature)}
	_, err = a.Answerer.AnswerStream(ctx, messages, params, func(_ context.Context, chunk string) error {
		fmt.Print(chunk)
		return nil
	})
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}
	fmt.Println()
	return nil
}
