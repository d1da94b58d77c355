package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/api/handlers"
	"github.com/nikhilbhutani/coursegen/internal/api/middleware"
	"github.com/nikhilbhutani/coursegen/internal/config"
	"github.com/nikhilbhutani/coursegen/internal/course"
	"github.com/nikhilbhutani/coursegen/internal/document"
	"github.com/nikhilbhutani/coursegen/internal/events"
	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/pipeline"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
	"github.com/nikhilbhutani/coursegen/internal/storage"
	"github.com/nikhilbhutani/coursegen/internal/store"
	"github.com/nikhilbhutani/coursegen/internal/store/memory"
)

const testSecret = "test-secret"

// echoProvider answers every completion with "pong" and streams two words.
type echoProvider struct {
	fail  bool
	calls atomic.Int32
}

func (p *echoProvider) Name() string { return "echo" }

func (p *echoProvider) ChatCompletion(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls.Add(1)
	if p.fail {
		return nil, errors.New("down")
	}
	return &llm.ChatResponse{Provider: "echo", Content: "pong"}, nil
}

func (p *echoProvider) ChatCompletionStream(ctx context.Context, _ llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	if p.fail {
		return nil, errors.New("down")
	}
	ch := make(chan llm.StreamChunk, 3)
	ch <- llm.StreamChunk{Content: "hello "}
	ch <- llm.StreamChunk{Content: "world"}
	ch <- llm.StreamChunk{Done: true, InputTokens: 3, OutputTokens: 2}
	close(ch)
	return ch, nil
}

// discardBus accepts publishes without running any stage.
type discardBus struct{}

func (discardBus) Publish(context.Context, string, any) error { return nil }
func (discardBus) Subscribe(string, events.Handler) {}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	handler http.Handler
	store   *store.Store
	courses *course.Service
}

func newTestServer(t *testing.T, provider *echoProvider, checks map[string]handlers.Pinger) *testServer {
	t.Helper()
	st := memory.New()
	blobs := storage.NewMemoryStorage()
	prompts, err := prompt.NewCompiler()
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	llmSvc := llm.NewService(llm.NewGatewayWithProviders("echo", provider), map[string]string{})
	docs := document.NewService(st.Documents, blobs, nil, 0)
	courses := course.NewService(st, nil, 0)
	orch := pipeline.New(docs, courses, document.NewExtractor(blobs, nil), llmSvc, prompts, discardBus{}, pipeline.Config{})

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"https://app.example"}},
		Auth:   config.AuthConfig{JWTSecret: testSecret},
	}
	h := NewRouter(Deps{
		Config:    cfg,
		Pipeline:  orch,
		Courses:   courses,
		Documents: docs,
		LLM:       llmSvc,
		Prompts:   prompts,
		Checks:    checks,
	})
	return &testServer{handler: h, store: st, courses: courses}
}

func token(t *testing.T, owner uuid.UUID) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, owner, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, owner uuid.UUID, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if owner != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+token(t, owner))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func uploadBody(t *testing.T, filename, mimeType, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	part.Write([]byte(content))
	mw.Close()
	return buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, map[string]handlers.Pinger{
		"database": pinger{},
		"redis":    pinger{err: errors.New("connection refused")},
		"skipped":  nil,
	})

	if rec := s.do(t, uuid.Nil, http.MethodGet, "/healthz", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}

	rec := s.do(t, uuid.Nil, http.MethodGet, "/readyz", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz status = %d, want 503", rec.Code)
	}
	body := decode[struct {
		Checks map[string]string `json:"checks"`
	}](t, rec)
	if body.Checks["database"] != "ok" || !strings.HasPrefix(body.Checks["redis"], "unhealthy") {
		t.Errorf("unexpected checks: %v", body.Checks)
	}
	if _, ok := body.Checks["skipped"]; ok {
		t.Error("nil pinger should not be reported")
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	owner := uuid.New()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + mustSign(t, "other", owner.String(), time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + mustSign(t, testSecret, owner.String(), -time.Hour), http.StatusUnauthorized},
		{"non-uuid subject", "Bearer " + mustSign(t, testSecret, "alice", time.Hour), http.StatusUnauthorized},
		{"valid", "Bearer " + mustSign(t, testSecret, owner.String(), time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func mustSign(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": subject, "exp": time.Now().Add(ttl).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestCreateCourse(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	owner := uuid.New()

	body, ct := uploadBody(t, "intro_to_go.txt", "text/plain", "Go is a compiled language.", map[string]string{"difficulty": "medium"})
	rec := s.do(t, owner, http.MethodPost, "/api/v1/courses", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	first := decode[pipeline.SubmitResult](t, rec)
	if first.Outcome != pipeline.OutcomeCreated {
		t.Errorf("outcome = %s, want created", first.Outcome)
	}
	if first.Course.ProcessingStatus != models.StatusPending || first.Document.MimeType != "text/plain" {
		t.Errorf("unexpected course: %+v", first.Course)
	}
	if first.Course.CourseType != models.CourseTypeStudent {
		t.Errorf("course type = %s, want student", first.Course.CourseType)
	}

	body, ct = uploadBody(t, "renamed.txt", "text/plain", "Go is a compiled language.", nil)
	rec = s.do(t, owner, http.MethodPost, "/api/v1/courses", body, ct)
	again := decode[pipeline.SubmitResult](t, rec)
	if rec.Code != http.StatusAccepted || again.Course.ID != first.Course.ID || again.Outcome != pipeline.OutcomeInProgress {
		t.Errorf("resubmission: status %d outcome %s course %s", rec.Code, again.Outcome, again.Course.ID)
	}
}

func TestCreateCourse_Educator(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	classID := uuid.New()

	body, ct := uploadBody(t, "a.md", "text/markdown", "# Notes", map[string]string{"classId": classID.String()})
	rec := s.do(t, uuid.New(), http.MethodPost, "/api/v1/courses", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[pipeline.SubmitResult](t, rec)
	if res.Course.CourseType != models.CourseTypeEducator || res.Course.Variant.Educator == nil || *res.Course.Variant.Educator.ClassID != classID {
		t.Errorf("unexpected variant: %+v", res.Course.Variant)
	}
}

func TestCreateCourse_Rejects(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)

	tests := []struct {
		name     string
		filename string
		mime     string
		content  string
		fields   map[string]string
		want     int
	}{
		{"unsupported type", "a.zip", "application/zip", "PK", nil, http.StatusUnsupportedMediaType},
		{"empty file", "a.txt", "text/plain", "", nil, http.StatusBadRequest},
		{"bad difficulty", "a.txt", "text/plain", "x", map[string]string{"difficulty": "expert"}, http.StatusBadRequest},
		{"bad course type", "a.txt", "text/plain", "x", map[string]string{"courseType": "guest"}, http.StatusBadRequest},
		{"class for student", "a.txt", "text/plain", "x", map[string]string{"courseType": "student", "classId": uuid.NewString()}, http.StatusBadRequest},
		{"bad class id", "a.txt", "text/plain", "x", map[string]string{"classId": "abc"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := uploadBody(t, tt.filename, tt.mime, tt.content, tt.fields)
			rec := s.do(t, uuid.New(), http.MethodPost, "/api/v1/courses", body, ct)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func seedCourse(t *testing.T, s *testServer, owner uuid.UUID) (*models.Course, *models.Chapter) {
	t.Helper()
	ctx := context.Background()
	c := &models.Course{OwnerID: owner, DocumentID: uuid.New(), Title: "Seeded", CourseType: models.CourseTypeStudent,
		Variant: models.CourseVariant{Student: &models.StudentDetails{}}}
	if err := s.courses.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ch, _, err := s.courses.EnsureChapter(ctx, c.ID, 1, models.ChapterPayload{Title: "One", Content: "First"})
	if err != nil {
		t.Fatalf("EnsureChapter() error = %v", err)
	}
	if _, err := s.courses.SaveQuiz(ctx, &models.Quiz{CourseID: c.ID, ChapterID: ch.ID, OwnerID: owner, Title: "Q"}); err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}
	return c, ch
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	owner := uuid.New()
	c, ch := seedCourse(t, s, owner)

	tests := []struct {
		name  string
		owner uuid.UUID
		path  string
		want  int
	}{
		{"course", owner, "/api/v1/courses/" + c.ID.String(), http.StatusOK},
		{"course of other owner", uuid.New(), "/api/v1/courses/" + c.ID.String(), http.StatusNotFound},
		{"bad id", owner, "/api/v1/courses/nope", http.StatusBadRequest},
		{"list", owner, "/api/v1/courses", http.StatusOK},
		{"chapters", owner, "/api/v1/courses/" + c.ID.String() + "/chapters", http.StatusOK},
		{"chapter", owner, "/api/v1/chapters/" + ch.ID.String(), http.StatusOK},
		{"chapter of other owner", uuid.New(), "/api/v1/chapters/" + ch.ID.String(), http.StatusNotFound},
		{"quiz", owner, "/api/v1/chapters/" + ch.ID.String() + "/quiz", http.StatusOK},
		{"missing deck", owner, "/api/v1/chapters/" + ch.ID.String() + "/flashcards", http.StatusNotFound},
		{"missing document", owner, "/api/v1/documents/" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.owner, http.MethodGet, tt.path, nil, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := s.do(t, owner, http.MethodGet, "/api/v1/courses/"+c.ID.String()+"/chapters", nil, "")
	list := decode[struct {
		Chapters []models.Chapter `json:"chapters"`
		Count    int              `json:"count"`
	}](t, rec)
	if list.Count != 1 || list.Chapters[0].Title != "One" {
		t.Errorf("unexpected chapters: %+v", list)
	}
}

func TestPublishQuiz(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	owner := uuid.New()
	_, ch := seedCourse(t, s, owner)
	path := "/api/v1/chapters/" + ch.ID.String() + "/quiz/publish"

	tests := []struct {
		name  string
		owner uuid.UUID
		path  string
		want  int
	}{
		{"other owner", uuid.New(), path, http.StatusNotFound},
		{"bad id", owner, "/api/v1/chapters/nope/quiz/publish", http.StatusBadRequest},
		{"missing chapter", owner, "/api/v1/chapters/" + uuid.NewString() + "/quiz/publish", http.StatusNotFound},
		{"publish", owner, path, http.StatusOK},
		{"publish again", owner, path, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.owner, http.MethodPost, tt.path, nil, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK {
				if q := decode[models.Quiz](t, rec); !q.IsPublished || q.PublishedAt == nil {
					t.Errorf("quiz not published: %+v", q)
				}
			}
		})
	}

	rec := s.do(t, owner, http.MethodGet, "/api/v1/chapters/"+ch.ID.String()+"/quiz", nil, "")
	if q := decode[models.Quiz](t, rec); !q.IsPublished {
		t.Errorf("GET quiz after publish = %+v", q)
	}
}

func TestUpdateCourse(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	owner := uuid.New()
	c, _ := seedCourse(t, s, owner)
	path := "/api/v1/courses/" + c.ID.String()

	rec := s.do(t, owner, http.MethodPatch, path, bytes.NewBufferString(`{"status":"deleted"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: got %d", rec.Code)
	}

	rec = s.do(t, uuid.New(), http.MethodPatch, path, bytes.NewBufferString(`{"title":"Stolen"}`), "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("other owner: got %d", rec.Code)
	}

	rec = s.do(t, owner, http.MethodPatch, path, bytes.NewBufferString(`{"title":"Renamed","visibility":"public"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d (%s)", rec.Code, rec.Body.String())
	}
	got := decode[models.Course](t, rec)
	if got.Title != "Renamed" || got.Visibility != models.VisibilityPublic || got.Status != models.CourseStatusDraft {
		t.Errorf("unexpected course after update: %+v", got)
	}
}

func TestAIStream(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)

	rec := s.do(t, uuid.New(), http.MethodPost, "/api/v1/ai/stream",
		bytes.NewBufferString(`{"system":"be brief","input":"hi"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	want := "data: {\"content\":\"hello \"}\n\ndata: {\"content\":\"world\"}\n\ndata: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestAIStream_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *echoProvider
		body     string
		want     int
	}{
		{"missing input", &echoProvider{}, `{"system":"x"}`, http.StatusBadRequest},
		{"no prompt", &echoProvider{}, `{"input":"x"}`, http.StatusBadRequest},
		{"unknown template", &echoProvider{}, `{"template":"essay","input":"x"}`, http.StatusBadRequest},
		{"missing variables", &echoProvider{}, `{"template":"quiz","input":"x"}`, http.StatusBadRequest},
		{"provider down", &echoProvider{fail: true}, `{"system":"x","input":"y"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.provider, nil)
			rec := s.do(t, uuid.New(), http.MethodPost, "/api/v1/ai/stream", bytes.NewBufferString(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAIGenerate(t *testing.T) {
	tests := []struct {
		name      string
		provider  *echoProvider
		body      string
		want      int
		wantCalls int32
	}{
		{"system prompt", &echoProvider{}, `{"system":"reply","input":"ping"}`, http.StatusOK, 1},
		{"pinned provider", &echoProvider{}, `{"system":"reply","input":"ping","provider":"echo"}`, http.StatusOK, 1},
		{"missing input", &echoProvider{}, `{"system":"x"}`, http.StatusBadRequest, 0},
		{"unknown template", &echoProvider{}, `{"template":"essay","input":"x"}`, http.StatusBadRequest, 0},
		{"provider down", &echoProvider{fail: true}, `{"system":"x","input":"y"}`, http.StatusBadGateway, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.provider, nil)
			rec := s.do(t, uuid.New(), http.MethodPost, "/api/v1/ai/generate", bytes.NewBufferString(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if got := tt.provider.calls.Load(); got != tt.wantCalls {
				t.Errorf("provider calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.want != http.StatusOK {
				return
			}
			res := decode[llm.Result](t, rec)
			if res.Content != "pong" || res.Provider != "echo" {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestAIBatch(t *testing.T) {
	tests := []struct {
		name       string
		provider   *echoProvider
		body       string
		want       int
		wantItems  int
		wantFailed int
	}{
		{"all succeed", &echoProvider{}, `{"requests":[{"system":"a","input":"1"},{"system":"b","input":"2"},{"system":"c","input":"3"}],"concurrency":2}`, http.StatusOK, 3, 0},
		{"all fail", &echoProvider{fail: true}, `{"requests":[{"system":"a","input":"1"},{"system":"b","input":"2"}]}`, http.StatusOK, 2, 2},
		{"empty", &echoProvider{}, `{"requests":[]}`, http.StatusBadRequest, 0, 0},
		{"invalid item", &echoProvider{}, `{"requests":[{"system":"a"}]}`, http.StatusBadRequest, 0, 0},
		{"unknown template", &echoProvider{}, `{"requests":[{"template":"essay","input":"x"}]}`, http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.provider, nil)
			rec := s.do(t, uuid.New(), http.MethodPost, "/api/v1/ai/batch", bytes.NewBufferString(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			body := decode[struct {
				Items []struct {
					Result *llm.Result `json:"result"`
					Error  string      `json:"error"`
				} `json:"items"`
				Failed int `json:"failed"`
			}](t, rec)
			if len(body.Items) != tt.wantItems || body.Failed != tt.wantFailed {
				t.Fatalf("items = %d failed = %d, want %d and %d", len(body.Items), body.Failed, tt.wantItems, tt.wantFailed)
			}
			for i, it := range body.Items {
				if tt.wantFailed == 0 && (it.Result == nil || it.Result.Content != "pong") {
					t.Errorf("item %d = %+v", i, it)
				}
				if tt.wantFailed > 0 && it.Error == "" {
					t.Errorf("item %d has no error", i)
				}
			}
		})
	}
}

func TestAIHealth(t *testing.T) {
	s := newTestServer(t, &echoProvider{fail: true}, nil)
	rec := s.do(t, uuid.New(), http.MethodGet, "/api/v1/ai/health", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct {
		Providers map[string]bool `json:"providers"`
	}](t, rec)
	if ok, present := body.Providers["echo"]; !present || ok {
		t.Errorf("providers = %v", body.Providers)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &echoProvider{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/courses", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}
}
