package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer and Title identify the calling app to OpenRouter.
	Referer string
	Title   string
}

// OpenRouterProvider speaks the chat completions wire format directly so the
// attribution headers OpenRouter expects travel with every call.
type OpenRouterProvider struct {
	cfg        OpenRouterConfig
	httpClient *http.Client
}

func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenRouterProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *OpenRouterProvider) Name() string { return ProviderOpenRouter }

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage completionUsage `json:"usage"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *completionUsage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) do(ctx context.Context, req ChatRequest, stream bool) (*http.Response, string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.cfg.Referer)
	}
	if p.cfg.Title != "" {
		httpReq.Header.Set("X-Title", p.cfg.Title)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("api error: %d - %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, model, nil
}

func (p *OpenRouterProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	resp, model, err := p.do(ctx, req, false)
	if err != nil {
		return nil, providerErr(ProviderOpenRouter, err)
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providerErr(ProviderOpenRouter, fmt.Errorf("decode response: %w", err))
	}

	var content, finish string
	if len(out.Choices) > 0 {
		content = out.Choices[0].Message.Content
		finish = out.Choices[0].FinishReason
	}
	if out.Model != "" {
		model = out.Model
	}

	return &ChatResponse{
		ID:           out.ID,
		Provider:     ProviderOpenRouter,
		Model:        model,
		Content:      content,
		FinishReason: finish,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		TotalTokens:  out.Usage.TotalTokens,
		CostUSD:      CalculateCost(model, out.Usage.PromptTokens, out.Usage.CompletionTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// ChatCompletionStream reads server-sent events until the [DONE] sentinel.
func (p *OpenRouterProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	resp, _, err := p.do(ctx, req, true)
	if err != nil {
		return nil, providerErr(ProviderOpenRouter, err)
	}

	ch := make(chan StreamChunk, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		var usage completionUsage
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			// Blank separators and ": keep-alive" comments carry no data.
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				emit(ctx, ch, StreamChunk{Done: true, InputTokens: usage.PromptTokens, OutputTokens: usage.CompletionTokens})
				return
			}

			var chunk completionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				emit(ctx, ch, StreamChunk{Error: providerErr(ProviderOpenRouter, fmt.Errorf("decode chunk: %w", err)), Done: true})
				return
			}
			if chunk.Error != nil {
				emit(ctx, ch, StreamChunk{Error: providerErr(ProviderOpenRouter, errors.New(chunk.Error.Message)), Done: true})
				return
			}
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !emit(ctx, ch, StreamChunk{Content: chunk.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		err := scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		emit(ctx, ch, StreamChunk{Error: providerErr(ProviderOpenRouter, fmt.Errorf("read stream: %w", err)), Done: true})
	}()

	return ch, nil
}
