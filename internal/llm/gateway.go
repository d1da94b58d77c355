package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/coursegen/internal/config"
)

const (
	// MaxTokensCeiling bounds every request's output budget, leaving room
	// for the prompt inside provider context limits.
	MaxTokensCeiling   = 8000
	DefaultTemperature = 0.3

	healthCheckTimeout = 30 * time.Second
	healthCheckPrompt  = "Respond with 'OK' only."
)

// Gateway routes normalized generation calls to a named provider, applying
// the default provider, temperature and token ceiling.
type Gateway struct {
	providers       map[string]Provider
	order           []string
	defaultProvider string
	temperature     float64
	maxTokens       int
}

// NewGateway registers every provider that has credentials in cfg.
func NewGateway(cfg config.LLMConfig) *Gateway {
	var providers []Provider
	if cfg.OpenRouterKey != "" {
		providers = append(providers, NewOpenRouterProvider(OpenRouterConfig{
			APIKey:  cfg.OpenRouterKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
			Referer: cfg.OpenRouterReferer,
			Title:   cfg.OpenRouterTitle,
		}))
	}
	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel))
	}
	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel))
	}
	if cfg.MistralKey != "" {
		providers = append(providers, NewMistralProvider(cfg.MistralKey, cfg.MistralBaseURL, cfg.MistralModel))
	}
	if cfg.OllamaURL != "" {
		providers = append(providers, NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel))
	}

	g := NewGatewayWithProviders(cfg.DefaultProvider, providers...)
	if cfg.Temperature > 0 {
		g.temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		g.maxTokens = min(cfg.MaxTokens, MaxTokensCeiling)
	}
	if _, ok := g.providers[g.defaultProvider]; !ok {
		slog.Warn("default LLM provider not configured", "provider", g.defaultProvider, "configured", g.order)
	}
	return g
}

func NewGatewayWithProviders(defaultProvider string, providers ...Provider) *Gateway {
	g := &Gateway{
		providers:       make(map[string]Provider, len(providers)),
		defaultProvider: defaultProvider,
		temperature:     DefaultTemperature,
		maxTokens:       MaxTokensCeiling,
	}
	for _, p := range providers {
		if _, dup := g.providers[p.Name()]; !dup {
			g.order = append(g.order, p.Name())
		}
		g.providers[p.Name()] = p
	}
	return g
}

func (g *Gateway) DefaultProvider() string { return g.defaultProvider }

// Providers lists configured providers with the default first.
func (g *Gateway) Providers() []string {
	out := make([]string, 0, len(g.order))
	if _, ok := g.providers[g.defaultProvider]; ok {
		out = append(out, g.defaultProvider)
	}
	for _, name := range g.order {
		if name != g.defaultProvider {
			out = append(out, name)
		}
	}
	return out
}

func (g *Gateway) Provider(name string) (Provider, error) {
	if name == "" {
		name = g.defaultProvider
	}
	p, ok := g.providers[name]
	if !ok {
		return nil, &ProviderError{Provider: name, Err: errors.New("not configured")}
	}
	return p, nil
}

// ChatRequest builds the two-turn request for req, clamping MaxTokens to
// MaxTokensCeiling.
func (g *Gateway) ChatRequest(req GenerationRequest) ChatRequest {
	temperature := g.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := g.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	maxTokens = min(maxTokens, MaxTokensCeiling)

	return ChatRequest{
		Model: req.Model,
		Messages: []Message{
			{Role: "system", Content: req.RenderedPrompt},
			{Role: "user", Content: req.InputText},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      req.Streaming,
	}
}

// Generate runs req on the named provider, or the default when name is empty.
// A blank completion is a failure.
func (g *Gateway) Generate(ctx context.Context, req GenerationRequest, name string) (*ChatResponse, error) {
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}
	chatReq := g.ChatRequest(req)
	chatReq.Stream = false

	slog.Debug("llm generate",
		"provider", p.Name(),
		"template", req.PromptTemplate,
		"max_tokens", chatReq.MaxTokens,
		"temperature", chatReq.Temperature,
	)

	resp, err := p.ChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, providerErr(p.Name(), err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("empty completion")}
	}

	slog.Info("llm generation complete",
		"provider", p.Name(),
		"model", resp.Model,
		"template", req.PromptTemplate,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"cost_usd", resp.CostUSD,
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}

// Stream opens a streaming generation. The returned Stream owns a child of
// ctx; closing it cancels the request.
func (g *Gateway) Stream(ctx context.Context, req GenerationRequest, name string) (*Stream, error) {
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}
	chatReq := g.ChatRequest(req)
	chatReq.Stream = true

	sctx, cancel := context.WithCancel(ctx)
	ch, err := p.ChatCompletionStream(sctx, chatReq)
	if err != nil {
		cancel()
		return nil, providerErr(p.Name(), err)
	}
	return newStream(p.Name(), ch, cancel), nil
}

// HealthCheck performs a minimal real completion. Any error, including a
// panic inside the provider, reports false.
func (g *Gateway) HealthCheck(ctx context.Context, name string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("provider health check panicked", "provider", name, "panic", r)
			ok = false
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	zero := 0.0
	_, err := g.Generate(ctx, GenerationRequest{
		PromptTemplate: "health",
		RenderedPrompt: healthCheckPrompt,
		InputText:      "test",
		Temperature:    &zero,
		MaxTokens:      10,
	}, name)
	if err != nil {
		slog.Warn("provider health check failed", "provider", name, "error", err)
		return false
	}
	return true
}
