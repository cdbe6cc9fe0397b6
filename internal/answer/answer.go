// Package answer turns a chat history into a grounded response: it embeds
// the latest user question, retrieves the nearest stored records, and
// generates an answer constrained to that retrieved context.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/koopa0/kura/internal/knowledge"
	"github.com/koopa0/kura/internal/log"
)

// ErrEmptyQuery is returned when the chat history carries no user question
// to answer.
var ErrEmptyQuery = errors.New("no content in last message")

const promptTemplate = "Answer the question based on the following context: %s\n\nQuestion: %s\nAnswer:"

// DefaultTopK is how many records ground an answer unless configured
// otherwise.
const DefaultTopK = 5

// Generation fallbacks applied when a request doesn't supply its own.
const (
	defaultMaxTokens   = 150
	defaultTemperature = 0.7
)

// generateTimeout bounds one answering flow end to end, matching the
// server's write timeout for streamed responses.
const generateTimeout = 2 * time.Minute

// Params are per-request generation overrides. Zero values fall back to
// the defaults.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Chat message roles accepted from clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of client-facing chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamCallback receives response text incrementally during generation.
type StreamCallback func(ctx context.Context, chunk string) error

// QueryEmbedder embeds a query string for retrieval.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Retriever finds stored records nearest to a query vector.
type Retriever interface {
	Query(ctx context.Context, vector []float32, topK int) ([]knowledge.Match, error)
}

// Answerer orchestrates the retrieval-augmented answering flow.
type Answerer struct {
	g         *genkit.Genkit
	modelName string
	embedder  QueryEmbedder
	retriever Retriever
	topK      int
	logger    log.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithTopK overrides how many records are retrieved per question.
func WithTopK(k int) Option {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// New creates an Answerer generating with the named model.
func New(g *genkit.Genkit, modelName string, embedder QueryEmbedder, retriever Retriever, logger log.Logger, opts ...Option) (*Answerer, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &Answerer{
		g:         g,
		modelName: modelName,
		embedder:  embedder,
		retriever: retriever,
		topK:      DefaultTopK,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Answer runs the full flow and returns the complete response text.
func (a *Answerer) Answer(ctx context.Context, messages []Message, p Params) (string, error) {
	return a.generate(ctx, messages, p, nil)
}

// AnswerStream runs the full flow, forwarding response text to cb as it
// arrives. The complete text is returned as well. A callback error aborts
// generation and is propagated.
func (a *Answerer) AnswerStream(ctx context.Context, messages []Message, p Params, cb StreamCallback) (string, error) {
	return a.generate(ctx, messages, p, cb)
}

func (a *Answerer) generate(ctx context.Context, messages []Message, p Params, cb StreamCallback) (string, error) {
	query := lastUserContent(messages)
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	vector, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}

	matches, err := a.retriever.Query(ctx, vector, a.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	a.logger.Debug("retrieved context", "matches", len(matches), "top_k", a.topK)

	prompt := composePrompt(query, matches)

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := p.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithMessages(buildModelMessages(messages, prompt)...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     temperature,
		}),
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return cb(ctx, chunk.Text())
		}))
	}

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return resp.Text(), nil
}

// ValidateMessages reports ErrEmptyQuery when the history carries no
// answerable question. Callers that stream should check this before
// committing response headers.
func ValidateMessages(messages []Message) error {
	if strings.TrimSpace(lastUserContent(messages)) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// lastUserContent returns the content of the final message when it is a
// user turn, empty otherwise.
func lastUserContent(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return ""
	}
	return last.Content
}

// composePrompt grounds the question in the retrieved records. Matches
// with empty content contribute nothing; no matches yields a prompt with
// an empty context, and the model answers from that.
func composePrompt(query string, matches []knowledge.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return fmt.Sprintf(promptTemplate, strings.Join(parts, "\n"), query)
}

// buildModelMessages converts the chat history for the model, replacing
// the final user message's content with the grounded prompt.
func buildModelMessages(messages []Message, prompt string) []*ai.Message {
	out := make([]*ai.Message, 0, len(messages))
	for i, m := range messages {
		text := m.Content
		if i == len(messages)-1 {
			text = prompt
		}
		switch m.Role {
		case RoleAssistant:
			out = append(out, ai.NewModelTextMessage(text))
		case RoleSystem:
			out = append(out, ai.NewSystemTextMessage(text))
		default:
			out = append(out, ai.NewUserTextMessage(text))
		}
	}
	return out
}
