package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/course"
	"github.com/nikhilbhutani/coursegen/internal/document"
	"github.com/nikhilbhutani/coursegen/internal/events"
	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
	"github.com/nikhilbhutani/coursegen/internal/storage"
	"github.com/nikhilbhutani/coursegen/internal/store"
	"github.com/nikhilbhutani/coursegen/internal/store/memory"
	"github.com/nikhilbhutani/coursegen/pkg/textextract"
)

const courseJSON = "Here is your course:\n```json\n" + `{
	"title": "Go Concurrency",
	"description": "Goroutines, channels and select.",
	"level": "intermediate",
	"tags": ["go"],
	"learningObjectives": ["use channels"],
	"keyConcepts": ["goroutine", "channel"],
	"chapters": [
		{"title": "Goroutines", "content": "A goroutine is a lightweight thread."},
		{"content": "Channels connect goroutines."}
	]
}` + "\n```"

const quizJSON = `{"title":"Check","passingScore":80,"questions":[{"questionText":"What is a goroutine?","questionType":"short_answer"}]}`

const flashcardsJSON = `{"title":"Cards","flashcards":[{"front":"goroutine","back":"lightweight thread"}]}`

// scriptedLLM answers by prompt template. A reply of nil uses the canned
// JSON for that template.
type scriptedLLM struct {
	mu      sync.Mutex
	calls   map[string]int
	replies map[string]func(call int) (string, error)
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{calls: make(map[string]int), replies: make(map[string]func(int) (string, error))}
}

func (s *scriptedLLM) on(template string, f func(call int) (string, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[template] = f
}

func (s *scriptedLLM) count(template string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[template]
}

func (s *scriptedLLM) Generate(_ context.Context, req llm.GenerationRequest, _ string) (*llm.Result, error) {
	s.mu.Lock()
	s.calls[req.PromptTemplate]++
	call := s.calls[req.PromptTemplate]
	f := s.replies[req.PromptTemplate]
	s.mu.Unlock()

	if req.RenderedPrompt == "" || req.InputText == "" {
		return nil, fmt.Errorf("request for %s is missing a turn", req.PromptTemplate)
	}

	var text string
	var err error
	switch {
	case f != nil:
		text, err = f(call)
	case req.PromptTemplate == prompt.Course:
		text = courseJSON
	case req.PromptTemplate == prompt.Quiz:
		text = quizJSON
	case req.PromptTemplate == prompt.Flashcards:
		text = flashcardsJSON
	default:
		err = fmt.Errorf("unexpected template %s", req.PromptTemplate)
	}
	if err != nil {
		return nil, err
	}
	return &llm.Result{ChatResponse: llm.ChatResponse{Provider: "fake", Content: text}}, nil
}

// captureBus records publishes without delivering them.
type captureBus struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (b *captureBus) Publish(_ context.Context, event string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == event {
			n++
		}
	}
	return n
}

type harness struct {
	orch  *Orchestrator
	store *store.Store
	blobs *storage.MemoryStorage
	llm   *scriptedLLM
	bus   *events.MemoryBus
}

func newHarness(t *testing.T, bus events.Bus) *harness {
	t.Helper()
	st := memory.New()
	blobs := storage.NewMemoryStorage()
	gen := newScriptedLLM()
	prompts, err := prompt.NewCompiler()
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}

	h := &harness{store: st, blobs: blobs, llm: gen}
	if bus == nil {
		h.bus = events.NewMemoryBus()
		bus = h.bus
	}
	h.orch = New(
		document.NewService(st.Documents, blobs, nil, 0),
		course.NewService(st, nil, 0),
		document.NewExtractor(blobs, nil),
		gen,
		prompts,
		bus,
		Config{QuizQuestionCount: 3, FlashcardCount: 4, MaxInputTokens: 1000},
	)
	h.orch.Register()
	return h
}

func (h *harness) wait() {
	if h.bus != nil {
		h.bus.Wait()
	}
}

func submitText(owner uuid.UUID, filename, body string) SubmitRequest {
	return SubmitRequest{
		OwnerID:    owner,
		Filename:   filename,
		MimeType:   textextract.MimeText,
		Data:       []byte(body),
		Difficulty: models.DifficultyIntermediate,
	}
}

func (h *harness) course(t *testing.T, id uuid.UUID) *models.Course {
	t.Helper()
	c, err := h.store.Courses.FindOne(context.Background(), store.CourseFilter{ID: &id})
	if err != nil {
		t.Fatalf("find course: %v", err)
	}
	return c
}

func TestSubmit_GeneratesEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	res, err := h.orch.Submit(ctx, submitText(uuid.New(), "go_concurrency.txt", "Goroutines and channels explained."))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Outcome != OutcomeCreated || res.Course.Title != "go concurrency" {
		t.Errorf("unexpected result: outcome=%s title=%q", res.Outcome, res.Course.Title)
	}
	h.wait()

	c := h.course(t, res.Course.ID)
	if c.ProcessingStatus != models.StatusCompleted || c.Title != "Go Concurrency" || c.ChapterCount != 2 {
		t.Fatalf("unexpected course: %+v", c)
	}
	doc, _ := h.store.Documents.FindOne(ctx, store.DocumentFilter{ID: &res.Document.ID})
	if doc.ProcessingStatus != models.StatusCompleted {
		t.Errorf("document status = %s", doc.ProcessingStatus)
	}

	chapters, _ := h.store.Chapters.Find(ctx, store.ChapterFilter{CourseID: &c.ID})
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	if chapters[0].Title != "Goroutines" || chapters[1].Title != "Chapter 2" || chapters[1].EstimatedDuration != "1 min" {
		t.Errorf("unexpected chapters: %+v, %+v", chapters[0], chapters[1])
	}

	for _, ch := range chapters {
		q, err := h.store.Quizzes.FindOne(ctx, store.AssessmentFilter{ChapterID: &ch.ID})
		if err != nil {
			t.Fatalf("quiz for chapter %d: %v", ch.Order, err)
		}
		if q.PassMark != 0.8 || len(q.Questions) != 1 || q.OwnerID != c.OwnerID {
			t.Errorf("unexpected quiz: %+v", q)
		}
		if _, err := h.store.Flashcards.FindOne(ctx, store.AssessmentFilter{ChapterID: &ch.ID}); err != nil {
			t.Fatalf("deck for chapter %d: %v", ch.Order, err)
		}
	}
}

func TestSubmit_IdempotentPerOwnerAndContent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	owner := uuid.New()

	first, err := h.orch.Submit(ctx, submitText(owner, "notes.txt", "same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	h.wait()

	second, err := h.orch.Submit(ctx, submitText(owner, "renamed.txt", "same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if second.Outcome != OutcomeExisting || second.Course.ID != first.Course.ID || second.Document.ID != first.Document.ID {
		t.Errorf("second submission: outcome=%s course=%s doc=%s", second.Outcome, second.Course.ID, second.Document.ID)
	}
	h.wait()

	if n := h.llm.count(prompt.Course); n != 1 {
		t.Errorf("course generated %d times, want 1", n)
	}
	if h.blobs.Len() != 1 {
		t.Errorf("blobs = %d, want 1", h.blobs.Len())
	}

	other, err := h.orch.Submit(ctx, submitText(uuid.New(), "notes.txt", "same bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if other.Outcome != OutcomeCreated || other.Course.ID == first.Course.ID {
		t.Errorf("another owner should get a new course, got %s", other.Outcome)
	}
	h.wait()
}

func TestSubmit_ConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	owner := uuid.New()

	var wg sync.WaitGroup
	results := make([]*SubmitResult, 10)
	errs := make([]error, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.orch.Submit(ctx, submitText(owner, "a.txt", "racing content"))
		}()
	}
	wg.Wait()
	h.wait()

	created := 0
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("submission %d: %v", i, errs[i])
		}
		if r.Outcome == OutcomeCreated {
			created++
		}
		if r.Course.ID != results[0].Course.ID {
			t.Errorf("submission %d got a different course", i)
		}
	}
	if created != 1 {
		t.Errorf("created outcomes = %d, want 1", created)
	}
	list, _ := h.store.Courses.Find(ctx, store.CourseFilter{OwnerID: &owner})
	if len(list) != 1 {
		t.Errorf("courses = %d, want 1", len(list))
	}
}

func TestSubmit_ResubmitsFailedCourse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.llm.on(prompt.Course, func(call int) (string, error) {
		if call == 1 {
			return "", errors.New("all providers down")
		}
		return courseJSON, nil
	})
	owner := uuid.New()

	first, err := h.orch.Submit(ctx, submitText(owner, "a.txt", "content"))
	if err != nil {
		t.Fatal(err)
	}
	h.wait()

	c := h.course(t, first.Course.ID)
	if c.ProcessingStatus != models.StatusFailed || c.ProcessingError == nil || !strings.Contains(*c.ProcessingError, "all providers down") {
		t.Fatalf("expected failed course with reason, got %+v", c)
	}
	doc, _ := h.store.Documents.FindOne(ctx, store.DocumentFilter{ID: &first.Document.ID})
	if doc.ProcessingStatus != models.StatusFailed {
		t.Errorf("document status = %s, want failed", doc.ProcessingStatus)
	}

	second, err := h.orch.Submit(ctx, submitText(owner, "a.txt", "content"))
	if err != nil {
		t.Fatal(err)
	}
	if second.Outcome != OutcomeResubmitted || second.Course.ProcessingStatus != models.StatusPending {
		t.Errorf("unexpected resubmission: outcome=%s status=%s", second.Outcome, second.Course.ProcessingStatus)
	}
	h.wait()

	c = h.course(t, first.Course.ID)
	if c.ProcessingStatus != models.StatusCompleted || c.ProcessingError != nil {
		t.Errorf("expected completed course after resubmission, got %+v", c)
	}
}

func TestHandleDocumentUploaded_ParseFailureFailsCourse(t *testing.T) {
	h := newHarness(t, nil)
	h.llm.on(prompt.Course, func(int) (string, error) { return "I cannot produce JSON today.", nil })

	res, err := h.orch.Submit(context.Background(), submitText(uuid.New(), "a.txt", "content"))
	if err != nil {
		t.Fatal(err)
	}
	h.wait()

	c := h.course(t, res.Course.ID)
	if c.ProcessingStatus != models.StatusFailed || c.ProcessingError == nil {
		t.Fatalf("expected failed course, got %+v", c)
	}
	if n := h.llm.count(prompt.Quiz); n != 0 {
		t.Errorf("no assessments expected, got %d quiz calls", n)
	}
}

func TestStageFailureIsolation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.llm.on(prompt.Quiz, func(int) (string, error) { return "", errors.New("quiz provider down") })

	res, err := h.orch.Submit(ctx, submitText(uuid.New(), "a.txt", "content"))
	if err != nil {
		t.Fatal(err)
	}
	h.wait()

	if c := h.course(t, res.Course.ID); c.ProcessingStatus != models.StatusCompleted {
		t.Fatalf("course status = %s, want completed", c.ProcessingStatus)
	}
	chapters, _ := h.store.Chapters.Find(ctx, store.ChapterFilter{CourseID: &res.Course.ID})
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	for _, ch := range chapters {
		if q, _ := h.store.Quizzes.FindOneOrNull(ctx, store.AssessmentFilter{ChapterID: &ch.ID}); q != nil {
			t.Errorf("chapter %d should have no quiz", ch.Order)
		}
		if d, _ := h.store.Flashcards.FindOneOrNull(ctx, store.AssessmentFilter{ChapterID: &ch.ID}); d == nil {
			t.Errorf("chapter %d should still get flashcards", ch.Order)
		}
	}
}

func TestHandlers_RedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	bus := &captureBus{}
	h := newHarness(t, bus)
	owner := uuid.New()

	res, err := h.orch.Submit(ctx, submitText(owner, "a.txt", "content"))
	if err != nil {
		t.Fatal(err)
	}
	uploaded := events.DocumentUploadedPayload{
		DocumentID: res.Document.ID,
		OwnerID:    owner,
		FileRef:    res.Document.FileRef(),
		Difficulty: models.DifficultyBeginner,
		CourseID:   res.Course.ID,
	}

	for range 2 {
		if err := h.orch.HandleDocumentUploaded(ctx, uploaded); err != nil {
			t.Fatalf("HandleDocumentUploaded() error = %v", err)
		}
	}
	if n := h.llm.count(prompt.Course); n != 1 {
		t.Errorf("course generated %d times, want 1", n)
	}

	ready := events.ChaptersReadyPayload{
		CourseID: res.Course.ID,
		OwnerID:  owner,
		Chapters: []models.ChapterPayload{{Title: "One", Content: "a"}, {Title: "Two", Content: "b"}},
	}
	for range 2 {
		if err := h.orch.HandleChaptersReady(ctx, ready); err != nil {
			t.Fatalf("HandleChaptersReady() error = %v", err)
		}
	}
	chapters, _ := h.store.Chapters.Find(ctx, store.ChapterFilter{CourseID: &res.Course.ID})
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	if n := bus.count(events.QuizRequested); n != 4 {
		t.Errorf("quiz requests = %d, want 4", n)
	}

	req := events.ChapterAssessmentPayload{
		ChapterID:      chapters[0].ID,
		CourseID:       res.Course.ID,
		OwnerID:        owner,
		ChapterTitle:   chapters[0].Title,
		ChapterContent: chapters[0].Content,
	}
	for range 2 {
		if err := h.orch.HandleQuizRequested(ctx, req); err != nil {
			t.Fatal(err)
		}
		if err := h.orch.HandleFlashcardsRequested(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	if n := h.llm.count(prompt.Quiz); n != 1 {
		t.Errorf("quiz generated %d times, want 1", n)
	}
	if n := h.llm.count(prompt.Flashcards); n != 1 {
		t.Errorf("flashcards generated %d times, want 1", n)
	}
}

func TestSubmit_PublishFailureFailsCourse(t *testing.T) {
	bus := &captureBus{err: errors.New("redis unreachable")}
	h := newHarness(t, bus)

	_, err := h.orch.Submit(context.Background(), submitText(uuid.New(), "a.txt", "content"))
	if err == nil || !strings.Contains(err.Error(), "redis unreachable") {
		t.Fatalf("expected publish error, got %v", err)
	}

	list, _ := h.store.Courses.Find(context.Background(), store.CourseFilter{})
	if len(list) != 1 || list[0].ProcessingStatus != models.StatusFailed {
		t.Fatalf("expected one failed course, got %+v", list)
	}
}

func TestSubmit_RejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	req := submitText(uuid.New(), "a.txt", "")
	if _, err := h.orch.Submit(ctx, req); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("empty upload: got %v", err)
	}

	req = submitText(uuid.New(), "a.zip", "PK")
	req.MimeType = "application/zip"
	if _, err := h.orch.Submit(ctx, req); !errors.Is(err, textextract.ErrUnsupportedFormat) {
		t.Errorf("zip upload: got %v", err)
	}

	req = submitText(uuid.New(), "a.txt", "x")
	req.CourseType = models.CourseTypeEducator
	req.Variant = &models.CourseVariant{Student: &models.StudentDetails{}}
	if _, err := h.orch.Submit(ctx, req); !errors.Is(err, ErrInvalidSubmission) {
		t.Errorf("mismatched variant: got %v", err)
	}
}

func TestPassMark(t *testing.T) {
	tests := []struct {
		percent int
		want    float64
	}{
		{0, models.DefaultPassMark},
		{80, 0.8},
		{100, 1},
		{250, models.DefaultPassMark},
	}
	for _, tt := range tests {
		if got := passMark(tt.percent); got != tt.want {
			t.Errorf("passMark(%d) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}
