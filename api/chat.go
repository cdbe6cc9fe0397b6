package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/koopa0/kura/internal/answer"
	"github.com/koopa0/kura/internal/log"
)

// ChatHandler serves grounded chat completions.
//
// POST /v1/chat/completions takes the chat history and answers the final
// user message from the knowledge base. With "stream": true the response
// is an SSE stream of chunk/done/error events; otherwise a single JSON
// body. Any other method on the route is a 404, matching the behavior of
// the upstream service this API fronts.
type ChatHandler struct {
	answerer *answer.Answerer
	logger   log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(answerer *answer.Answerer, logger log.Logger) *ChatHandler {
	return &ChatHandler{answerer: answerer, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.answerer == nil {
		h.logger.Warn("ChatHandler: answerer is nil, chat endpoint not registered")
		return
	}
	// Registered without a method pattern: non-POST must 404, not 405.
	mux.HandleFunc("/v1/chat/completions", h.handleCompletions)
}

// ChatRequest is the request body for the completions endpoint.
// MaxTokens and Temperature override the generation defaults when set.
type ChatRequest struct {
	Messages    []answer.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

func (r *ChatRequest) params() answer.Params {
	return answer.Params{MaxTokens: r.MaxTokens, Temperature: r.Temperature}
}

// ChatResponse is the JSON body for non-streaming completions.
type ChatResponse struct {
	Response string `json:"response"`
}

// SSEChunkData is the payload of "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the payload of the final "done" event.
type SSEDoneData struct {
	Response string `json:"response"`
}

// SSEErrorData is the payload of "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *ChatHandler) handleCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid request body: %v", err))
		return
	}

	// Validate before the stream branch so a bad request gets a 400
	// body instead of an SSE error after headers are committed.
	if err := answer.ValidateMessages(req.Messages); err != nil {
		h.writeAnswerError(w, err)
		return
	}

	if req.Stream {
		h.streamCompletion(w, r, &req)
		return
	}

	response, err := h.answerer.Answer(r.Context(), req.Messages, req.params())
	if err != nil {
		h.writeAnswerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: response})
}

func (h *ChatHandler) writeAnswerError(w http.ResponseWriter, err error) {
	if errors.Is(err, answer.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "empty_query", "No content in last message")
		return
	}
	h.logger.Error("answer failed", "error", err)
	writeError(w, http.StatusInternalServerError, "generation_failed", "failed to generate answer")
}

// streamCompletion streams the answer as Server-Sent Events. Messages
// are validated before this point; failures here arrive after headers
// are out and surface as an "error" event.
func (h *ChatHandler) streamCompletion(w http.ResponseWriter, r *http.Request, req *ChatRequest) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	response, err := h.answerer.AnswerStream(ctx, req.Messages, req.params(), func(_ context.Context, chunk string) error {
		if chunk == "" {
			return nil
		}
		h.writeSSEChunk(w, flusher, chunk)
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			// Client went away mid-stream; nothing left to write.
			h.logger.Debug("client disconnected during stream")
			return
		}
		h.logger.Error("stream failed", "error", err)
		h.writeSSEError(w, flusher, "stream_error", "failed to generate answer")
		return
	}

	h.writeSSEDone(w, flusher, response)
}

func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, response string) {
	data, _ := json.Marshal(SSEDoneData{Response: response})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
