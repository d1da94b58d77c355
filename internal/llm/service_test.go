package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestService(def string, providers ...Provider) (*Service, *recordedSleep) {
	s := NewService(NewGatewayWithProviders(def, providers...), nil)
	rec := &recordedSleep{}
	s.sleep = rec.sleep
	return s, rec
}

func TestService_GeneratePrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: ProviderOpenRouter, content: "primary"}
	alternate := &fakeProvider{name: ProviderMistral, content: "alternate"}
	s, _ := newTestService(ProviderOpenRouter, primary, alternate)

	res, err := s.Generate(context.Background(), GenerationRequest{}, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text() != "primary" || res.FallbackFrom != "" {
		t.Errorf("unexpected result: %+v", res)
	}
	if alternate.callCount() != 0 {
		t.Errorf("alternate should not be called, got %d calls", alternate.callCount())
	}
}

func TestService_GenerateFallsBackOnce(t *testing.T) {
	primary := &fakeProvider{name: ProviderOpenRouter, err: errors.New("503")}
	alternate := &fakeProvider{name: ProviderMistral, content: "from mistral"}
	s, _ := newTestService(ProviderOpenRouter, primary, alternate)

	res, err := s.Generate(context.Background(), GenerationRequest{}, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text() != "from mistral" || res.FallbackFrom != ProviderOpenRouter {
		t.Errorf("unexpected result: %+v", res)
	}
	if primary.callCount() != 1 || alternate.callCount() != 1 {
		t.Errorf("calls: primary=%d alternate=%d, want 1 each", primary.callCount(), alternate.callCount())
	}
}

func TestService_GenerateBothFail(t *testing.T) {
	primaryErr := errors.New("rate limited")
	alternateErr := errors.New("bad gateway")
	primary := &fakeProvider{name: ProviderOpenRouter, err: primaryErr}
	alternate := &fakeProvider{name: ProviderMistral, err: alternateErr}
	s, _ := newTestService(ProviderOpenRouter, primary, alternate)

	_, err := s.Generate(context.Background(), GenerationRequest{}, "")

	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FallbackError, got %v", err)
	}
	if fe.Primary != ProviderOpenRouter || fe.Alternate != ProviderMistral {
		t.Errorf("unexpected providers in %+v", fe)
	}
	msg := err.Error()
	if !strings.Contains(msg, ProviderOpenRouter) || !strings.Contains(msg, ProviderMistral) {
		t.Errorf("error message should name both providers: %q", msg)
	}
	for _, target := range []error{ErrProviderUnavailable, primaryErr, alternateErr} {
		if !errors.Is(err, target) {
			t.Errorf("errors.Is(err, %v) = false", target)
		}
	}
	if primary.callCount() != 1 || alternate.callCount() != 1 {
		t.Errorf("each provider must be tried exactly once: primary=%d alternate=%d", primary.callCount(), alternate.callCount())
	}
}

func TestService_GenerateAlternateNotConfigured(t *testing.T) {
	primary := &fakeProvider{name: ProviderOpenAI, err: errors.New("quota")}
	s, _ := newTestService(ProviderOpenAI, primary)

	_, err := s.Generate(context.Background(), GenerationRequest{}, "")
	var fe *FallbackError
	if !errors.As(err, &fe) || fe.Alternate != ProviderAnthropic {
		t.Fatalf("expected FallbackError naming anthropic, got %v", err)
	}
}

func TestService_GenerateWithRetryBoundsAttempts(t *testing.T) {
	p := &fakeProvider{name: ProviderOpenRouter, err: errors.New("down")}
	s, rec := newTestService(ProviderOpenRouter, p)

	_, err := s.GenerateWithRetry(context.Background(), GenerationRequest{}, 3, ProviderOpenRouter)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if p.callCount() != 3 {
		t.Errorf("calls = %d, want 3", p.callCount())
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", rec.waits, want)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, rec.waits[i], want[i])
		}
	}
}

func TestService_GenerateWithRetryWalksProviders(t *testing.T) {
	def := &fakeProvider{name: ProviderOpenRouter, err: errors.New("down")}
	other := &fakeProvider{name: ProviderOpenAI, content: "ok"}
	s, rec := newTestService(ProviderOpenRouter, other, def)

	res, err := s.GenerateWithRetry(context.Background(), GenerationRequest{}, 0, "")
	if err != nil {
		t.Fatalf("GenerateWithRetry() error = %v", err)
	}
	if res.Provider != ProviderOpenAI {
		t.Errorf("provider = %s, want openai", res.Provider)
	}
	if def.callCount() != 1 || len(rec.waits) != 0 {
		t.Errorf("default calls = %d, waits = %v", def.callCount(), rec.waits)
	}
}

func TestService_GenerateWithRetryHonoursCancel(t *testing.T) {
	p := &fakeProvider{name: ProviderOpenRouter, err: errors.New("down")}
	s, _ := newTestService(ProviderOpenRouter, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GenerateWithRetry(ctx, GenerationRequest{}, 5, ProviderOpenRouter)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.callCount() != 1 {
		t.Errorf("calls = %d, want 1", p.callCount())
	}
}

// failOn fails requests whose user turn matches.
type failOn struct {
	fakeProvider
	bad string
}

func (f *failOn) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Messages[1].Content == f.bad {
		return nil, errors.New("rejected")
	}
	return &ChatResponse{Provider: f.name, Content: "out:" + req.Messages[1].Content}, nil
}

func TestService_BatchGeneratePartialFailure(t *testing.T) {
	primary := &failOn{fakeProvider: fakeProvider{name: ProviderOllama}, bad: "c"}
	// ollama falls back to openrouter, which is not configured here.
	s, _ := newTestService(ProviderOllama, primary)

	var reqs []GenerationRequest
	for _, in := range []string{"a", "b", "c", "d", "e"} {
		reqs = append(reqs, GenerationRequest{InputText: in})
	}

	batch, err := s.BatchGenerate(context.Background(), reqs, 2)

	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if be.Failed != 1 || be.Total != 5 {
		t.Errorf("BatchError = %+v, want 1 of 5", be)
	}
	if failed := batch.Failed(); len(failed) != 1 || failed[0] != 2 {
		t.Errorf("Failed() = %v, want [2]", failed)
	}

	ok := batch.Succeeded()
	if len(ok) != 4 {
		t.Fatalf("Succeeded() has %d results, want 4", len(ok))
	}
	for i, want := range []string{"out:a", "out:b", "out:d", "out:e"} {
		if ok[i].Text() != want {
			t.Errorf("result %d = %q, want %q", i, ok[i].Text(), want)
		}
	}
}

func TestService_BatchGenerateAllSucceed(t *testing.T) {
	s, _ := newTestService(ProviderOpenRouter, &fakeProvider{name: ProviderOpenRouter, content: "x"})

	batch, err := s.BatchGenerate(context.Background(), make([]GenerationRequest, 3), 0)
	if err != nil {
		t.Fatalf("BatchGenerate() error = %v", err)
	}
	if len(batch.Succeeded()) != 3 {
		t.Errorf("Succeeded() = %d, want 3", len(batch.Succeeded()))
	}
}

func TestService_StreamGenerateDoesNotFallBack(t *testing.T) {
	primary := &fakeProvider{name: ProviderOpenRouter, err: errors.New("down")}
	alternate := &fakeProvider{name: ProviderMistral, chunks: []StreamChunk{{Content: "x"}, {Done: true}}}
	s, _ := newTestService(ProviderOpenRouter, primary, alternate)

	if _, err := s.StreamGenerate(context.Background(), GenerationRequest{}, ""); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestService_HealthCheckAll(t *testing.T) {
	s, _ := newTestService(ProviderOpenRouter,
		&fakeProvider{name: ProviderOpenRouter, content: "OK"},
		&fakeProvider{name: ProviderMistral, err: errors.New("down")},
		&fakeProvider{name: ProviderOllama, panics: true},
	)

	got := s.HealthCheckAll(context.Background())
	want := map[string]bool{ProviderOpenRouter: true, ProviderMistral: false, ProviderOllama: false}
	if len(got) != len(want) {
		t.Fatalf("HealthCheckAll() = %v, want %v", got, want)
	}
	for name, ok := range want {
		if got[name] != ok {
			t.Errorf("%s = %v, want %v", name, got[name], ok)
		}
	}
}
