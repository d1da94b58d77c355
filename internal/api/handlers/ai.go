package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
)

type AIHandler struct {
	llm        *llm.Service
	prompts    *prompt.Compiler
	maxRetries int
}

func NewAIHandler(svc *llm.Service, prompts *prompt.Compiler, maxRetries int) *AIHandler {
	return &AIHandler{llm: svc, prompts: prompts, maxRetries: maxRetries}
}

func (h *AIHandler) Health(w http.ResponseWriter, r *http.Request) {
	results := h.llm.HealthCheckAll(r.Context())
	status := http.StatusOK
	for _, ok := range results {
		if !ok {
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, map[string]any{"providers": results, "default": h.llm.Gateway().DefaultProvider()})
}

// StreamRequest either names a registered template with its variables or
// carries a raw system prompt.
type StreamRequest struct {
	Template    string            `json:"template" validate:"required_without=System"`
	Variables   map[string]string `json:"variables"`
	System      string            `json:"system" validate:"required_without=Template"`
	Input       string            `json:"input" validate:"required"`
	Provider    string            `json:"provider"`
	Temperature *float64          `json:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens   int               `json:"maxTokens" validate:"omitempty,min=1"`
}

type streamEvent struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// decode reads and validates a StreamRequest and renders its system prompt.
// It writes the error response itself and reports false on failure.
func (h *AIHandler) decode(w http.ResponseWriter, r *http.Request) (llm.GenerationRequest, string, bool) {
	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return llm.GenerationRequest{}, "", false
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return llm.GenerationRequest{}, "", false
	}
	gen, err := h.render(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return llm.GenerationRequest{}, "", false
	}
	return gen, req.Provider, true
}

func (h *AIHandler) render(req StreamRequest) (llm.GenerationRequest, error) {
	system := req.System
	if req.Template != "" {
		compiled, err := h.prompts.Compile(req.Template, req.Variables)
		if err != nil {
			return llm.GenerationRequest{}, err
		}
		system = compiled
	}
	return llm.GenerationRequest{
		PromptTemplate: req.Template,
		RenderedPrompt: system,
		InputText:      req.Input,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}, nil
}

// Generate returns one completion. Without a pinned provider every configured
// provider is tried on each attempt, up to the configured retry count.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, provider, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.llm.GenerateWithRetry(r.Context(), req, h.maxRetries, provider)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type BatchRequest struct {
	Requests    []StreamRequest `json:"requests" validate:"required,min=1,max=20,dive"`
	Concurrency int             `json:"concurrency" validate:"omitempty,min=1,max=10"`
}

type batchItem struct {
	Result *llm.Result `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Batch runs several completions with bounded concurrency. Each item goes to
// the default provider and its fallback; a per-item provider is ignored.
// Individual failures are reported per item and never fail the whole batch.
func (h *AIHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}

	reqs := make([]llm.GenerationRequest, len(req.Requests))
	for i, item := range req.Requests {
		gen, err := h.render(item)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("request %d: %v", i, err))
			return
		}
		reqs[i] = gen
	}

	batch, err := h.llm.BatchGenerate(r.Context(), reqs, max(req.Concurrency, 1))
	if err != nil {
		slog.WarnContext(r.Context(), "batch generation incomplete", "error", err)
	}
	items := make([]batchItem, len(batch.Items))
	failed := 0
	for i, it := range batch.Items {
		if it.Err != nil {
			items[i].Error = it.Err.Error()
			failed++
			continue
		}
		items[i].Result = it.Result
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "failed": failed})
}

// Stream relays one provider's output as server-sent events. The stream is
// bound to the request context, so a client disconnect ends it.
func (h *AIHandler) Stream(w http.ResponseWriter, r *http.Request) {
	req, provider, ok := h.decode(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	stream, err := h.llm.StreamGenerate(r.Context(), req, provider)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Provider", stream.Provider)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		text, ok := stream.Next()
		if !ok {
			break
		}
		writeEvent(w, "", streamEvent{Content: text})
		flusher.Flush()
	}

	if err := stream.Err(); err != nil {
		slog.WarnContext(r.Context(), "stream failed", "provider", stream.Provider, "error", err)
		writeEvent(w, "error", streamEvent{Error: err.Error()})
		flusher.Flush()
		return
	}
	if r.Context().Err() != nil {
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, v streamEvent) {
	data, _ := json.Marshal(v)
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
