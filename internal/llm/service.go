package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service layers cross-provider fallback, bounded retry and batching over a
// Gateway.
type Service struct {
	gateway   *Gateway
	fallbacks map[string]string
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewService(g *Gateway, fallbacks map[string]string) *Service {
	if fallbacks == nil {
		fallbacks = DefaultFallbacks
	}
	return &Service{
		gateway:   g,
		fallbacks: fallbacks,
		sleep:     sleepCtx,
	}
}

func (s *Service) Gateway() *Gateway { return s.gateway }

// Generate calls the preferred provider, or the default, and on failure
// tries its mapped alternate exactly once.
func (s *Service) Generate(ctx context.Context, req GenerationRequest, provider string) (*Result, error) {
	primary := provider
	if primary == "" {
		primary = s.gateway.DefaultProvider()
	}

	resp, err := s.gateway.Generate(ctx, req, primary)
	if err == nil {
		return &Result{ChatResponse: *resp}, nil
	}

	alternate, ok := s.fallbacks[primary]
	if !ok || alternate == primary {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("primary provider failed, trying fallback",
		"primary", primary,
		"fallback", alternate,
		"template", req.PromptTemplate,
		"error", err,
	)

	altResp, altErr := s.gateway.Generate(ctx, req, alternate)
	if altErr != nil {
		return nil, &FallbackError{Primary: primary, PrimaryErr: err, Alternate: alternate, AlternateErr: altErr}
	}
	return &Result{ChatResponse: *altResp, FallbackFrom: primary}, nil
}

// GenerateWithRetry makes up to maxRetries attempts. Each attempt tries the
// pinned provider, or every configured provider with the default first, and
// sleeps 2^attempt seconds before the next attempt.
func (s *Service) GenerateWithRetry(ctx context.Context, req GenerationRequest, maxRetries int, provider string) (*Result, error) {
	maxRetries = max(maxRetries, 1)

	candidates := []string{provider}
	if provider == "" {
		candidates = s.gateway.Providers()
	}
	if len(candidates) == 0 {
		return nil, &ProviderError{Provider: s.gateway.DefaultProvider(), Err: errors.New("no providers configured")}
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		for _, name := range candidates {
			resp, err := s.gateway.Generate(ctx, req, name)
			if err == nil {
				return &Result{ChatResponse: *resp}, nil
			}
			lastErr = err
			slog.Warn("generation attempt failed",
				"attempt", attempt,
				"max_retries", maxRetries,
				"provider", name,
				"error", err,
			)
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<attempt) * time.Second
			if err := s.sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("retry aborted after attempt %d: %w", attempt, errors.Join(err, lastErr))
			}
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", maxRetries, lastErr)
}

// BatchItem is the outcome of one request in a batch, at the request's index.
type BatchItem struct {
	Result *Result
	Err    error
}

type Batch struct {
	Items []BatchItem
}

// Succeeded returns the successful results in request order.
func (b *Batch) Succeeded() []*Result {
	var out []*Result
	for _, it := range b.Items {
		if it.Err == nil {
			out = append(out, it.Result)
		}
	}
	return out
}

// Failed returns the indexes of failed requests.
func (b *Batch) Failed() []int {
	var out []int
	for i, it := range b.Items {
		if it.Err != nil {
			out = append(out, i)
		}
	}
	return out
}

type BatchError struct {
	Failed int
	Total  int
	Errs   []error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch generation: %d of %d requests failed", e.Failed, e.Total)
}

func (e *BatchError) Unwrap() []error { return e.Errs }

// BatchGenerate runs reqs in chunks of concurrency. A failure never cancels
// its siblings; the batch still reports an error when any item failed, and
// the successful items stay available on the returned Batch.
func (s *Service) BatchGenerate(ctx context.Context, reqs []GenerationRequest, concurrency int) (*Batch, error) {
	concurrency = max(concurrency, 1)
	batch := &Batch{Items: make([]BatchItem, len(reqs))}

	for start := 0; start < len(reqs); start += concurrency {
		end := min(start+concurrency, len(reqs))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				res, err := s.Generate(ctx, reqs[i], "")
				batch.Items[i] = BatchItem{Result: res, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	var errs []error
	for i, it := range batch.Items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("request %d: %w", i, it.Err))
		}
	}
	if len(errs) > 0 {
		slog.Warn("batch generation partially failed", "failed", len(errs), "total", len(reqs))
		return batch, &BatchError{Failed: len(errs), Total: len(reqs), Errs: errs}
	}
	return batch, nil
}

// StreamGenerate streams from exactly one provider, without fallback.
func (s *Service) StreamGenerate(ctx context.Context, req GenerationRequest, provider string) (*Stream, error) {
	req.Streaming = true
	return s.gateway.Stream(ctx, req, provider)
}

// HealthCheckAll probes every configured provider concurrently.
func (s *Service) HealthCheckAll(ctx context.Context) map[string]bool {
	names := s.gateway.Providers()
	results := make(map[string]bool, len(names))
	var mu sync.Mutex

	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			ok := s.gateway.HealthCheck(ctx, name)
			mu.Lock()
			results[name] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
