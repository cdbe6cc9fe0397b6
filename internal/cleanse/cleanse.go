// Package cleanse removes boilerplate and markup noise from scraped page
// content before it is chunked and embedded. The primary strategy asks a
// language model to clean the text; when no model is configured or the call
// fails, a regex strategy takes over. Cleansing never fails: the worst
// outcome is the original content passed through unchanged.
package cleanse

import (
	"context"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/koopa0/kura/internal/log"
)

const systemPrompt = `You are a content cleansing assistant for a knowledge base built from scraped web pages. Your job is to clean up scraped web content while PRESERVING all substantive information.

CLEANING RULES:
1. REMOVE navigation elements, menus, headers, footers
2. REMOVE image references, alt texts, and file paths (e.g., "![Icon](path/to/image.svg)")
3. REMOVE redundant links and URL references
4. REMOVE formatting artifacts like markdown syntax errors
5. REMOVE generic website boilerplate

PRESERVATION RULES (CRITICAL):
6. KEEP all product details, features, and domain expertise
7. KEEP all terms, rates, figures, and eligibility information
8. KEEP all customer-facing information, FAQs, and support content
9. KEEP all regulatory, legal, and compliance information
10. PRESERVE the natural flow and readability
11. MAINTAIN factual accuracy - never change or add information

Return ONLY the cleaned content, no explanations or meta-commentary.`

// Generation settings for the model strategy. Low temperature keeps the
// cleaning conservative.
const (
	modelTemperature = 0.1
	modelMaxTokens   = 2000
	modelTimeout     = 60 * time.Second
)

// Cleanser cleans raw page content. Implementations must not fail: when a
// strategy cannot run, they degrade and return usable text.
type Cleanser interface {
	Cleanse(ctx context.Context, content string) string
}

// BasicCleanser applies only the regex strategy.
type BasicCleanser struct{}

func (BasicCleanser) Cleanse(_ context.Context, content string) string {
	return Basic(content)
}

// ModelCleanser cleans content with a language model and falls back to the
// regex strategy when the model call fails.
type ModelCleanser struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger
}

// NewModelCleanser returns a cleanser backed by the named model.
func NewModelCleanser(g *genkit.Genkit, modelName string, logger log.Logger) *ModelCleanser {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ModelCleanser{g: g, modelName: modelName, logger: logger}
}

// Cleanse asks the model to clean content. On a failed call it logs and
// falls back to the regex strategy; on an empty model response it returns
// the original content unchanged. Blank input passes through as-is.
func (c *ModelCleanser) Cleanse(ctx context.Context, content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}

	ctx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt("Please clean this content:\n\n"+content),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     modelTemperature,
			MaxOutputTokens: modelMaxTokens,
		}),
	)
	if err != nil {
		c.logger.Warn("model cleanse failed, using regex fallback", "model", c.modelName, "error", err)
		return Basic(content)
	}

	cleaned := strings.TrimSpace(resp.Text())
	if cleaned == "" {
		c.logger.Warn("model returned empty content, keeping original", "model", c.modelName)
		return content
	}
	return cleaned
}
