package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/coursegen/internal/api/handlers"
	"github.com/nikhilbhutani/coursegen/internal/api/middleware"
	"github.com/nikhilbhutani/coursegen/internal/config"
	"github.com/nikhilbhutani/coursegen/internal/course"
	"github.com/nikhilbhutani/coursegen/internal/document"
	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/pipeline"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
)

// Deps are the services the HTTP surface is built over. Checks lists the
// backends /readyz pings; nil entries are skipped.
type Deps struct {
	Config    *config.Config
	Pipeline  *pipeline.Orchestrator
	Courses   *course.Service
	Documents *document.Service
	LLM       *llm.Service
	Prompts   *prompt.Compiler
	Limiter   *middleware.RateLimiter
	Checks    map[string]handlers.Pinger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.Config.Server.AllowedOrigins))
	if d.Limiter != nil {
		r.Use(d.Limiter.Limit)
	}

	health := handlers.NewHealthHandler(d.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	courseH := handlers.NewCourseHandler(d.Pipeline, d.Courses)
	docH := handlers.NewDocumentHandler(d.Documents)
	aiH := handlers.NewAIHandler(d.LLM, d.Prompts, d.Config.LLM.MaxRetries)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Config.Auth.JWTSecret))

		r.Route("/courses", func(r chi.Router) {
			r.Post("/", courseH.Create)
			r.Get("/", courseH.List)
			r.Get("/{id}", courseH.Get)
			r.Patch("/{id}", courseH.Update)
			r.Get("/{id}/chapters", courseH.Chapters)
		})

		r.Route("/chapters", func(r chi.Router) {
			r.Get("/{id}", courseH.Chapter)
			r.Get("/{id}/quiz", courseH.Quiz)
			r.Post("/{id}/quiz/publish", courseH.PublishQuiz)
			r.Get("/{id}/flashcards", courseH.Flashcards)
		})

		r.Get("/documents/{id}", docH.Get)

		r.Route("/ai", func(r chi.Router) {
			r.Get("/health", aiH.Health)
			r.Post("/generate", aiH.Generate)
			r.Post("/batch", aiH.Batch)
			r.Post("/stream", aiH.Stream)
		})
	})

	return r
}
