// Package pipeline drives an upload through course, chapter and assessment
// generation. Submit is the only entry point; every later stage runs as an
// event handler on the bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/course"
	"github.com/nikhilbhutani/coursegen/internal/document"
	"github.com/nikhilbhutani/coursegen/internal/events"
	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
	"github.com/nikhilbhutani/coursegen/internal/store"
	"github.com/nikhilbhutani/coursegen/pkg/textextract"
)

var (
	ErrEmptyUpload = errors.New("uploaded file is empty")
	// ErrInvalidSubmission wraps course type and variant mismatches.
	ErrInvalidSubmission = errors.New("invalid submission")
)

// Generator produces one completion, falling back across providers.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerationRequest, provider string) (*llm.Result, error)
}

type TextExtractor interface {
	ExtractText(ctx context.Context, ref models.FileRef) (string, error)
}

type Config struct {
	QuizQuestionCount int
	FlashcardCount    int
	MaxInputTokens    int
}

type Orchestrator struct {
	documents *document.Service
	courses   *course.Service
	extractor TextExtractor
	llm       Generator
	prompts   *prompt.Compiler
	bus       events.Bus
	cfg       Config
}

func New(
	documents *document.Service,
	courses *course.Service,
	extractor TextExtractor,
	gen Generator,
	prompts *prompt.Compiler,
	bus events.Bus,
	cfg Config,
) *Orchestrator {
	if cfg.QuizQuestionCount <= 0 {
		cfg.QuizQuestionCount = 10
	}
	if cfg.FlashcardCount <= 0 {
		cfg.FlashcardCount = 15
	}
	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = 100_000
	}
	return &Orchestrator{
		documents: documents,
		courses:   courses,
		extractor: extractor,
		llm:       gen,
		prompts:   prompts,
		bus:       bus,
		cfg:       cfg,
	}
}

type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeExisting    Outcome = "existing"
	OutcomeInProgress  Outcome = "in_progress"
	OutcomeResubmitted Outcome = "resubmitted"
)

type SubmitRequest struct {
	OwnerID    uuid.UUID
	Filename   string
	MimeType   string
	Data       []byte
	Difficulty models.Difficulty
	CourseType models.CourseType
	// Variant defaults to the course type's default variant when nil.
	Variant *models.CourseVariant
}

type SubmitResult struct {
	Course   *models.Course   `json:"course"`
	Document *models.Document `json:"document"`
	Outcome  Outcome          `json:"outcome"`
}

// Submit registers an upload and starts generation for it. Repeated
// submissions of the same bytes by the same owner never create a second
// document or course: they return the existing course, or restart it when
// its last run failed.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if !textextract.Supported(req.MimeType) && models.DocumentType(req.MimeType) != models.DocTypeImage {
		return nil, fmt.Errorf("%w: %s", textextract.ErrUnsupportedFormat, req.MimeType)
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyBeginner
	}
	if req.CourseType == "" {
		req.CourseType = models.CourseTypeStudent
	}
	variant, err := resolveVariant(req.CourseType, req.Variant)
	if err != nil {
		return nil, err
	}

	doc, _, err := o.documents.Ingest(ctx, document.IngestRequest{
		OwnerID:  req.OwnerID,
		Filename: req.Filename,
		MimeType: req.MimeType,
		Data:     req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest document: %w", err)
	}

	existing, err := o.courses.ForDocument(ctx, req.OwnerID, doc.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return o.resume(ctx, existing, doc, req.Difficulty)
	}

	c := &models.Course{
		OwnerID:    req.OwnerID,
		DocumentID: doc.ID,
		Title:      document.Title(req.Filename),
		Level:      req.Difficulty,
		CourseType: req.CourseType,
		Variant:    variant,
	}
	if err := o.courses.Create(ctx, c); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		// A concurrent submission of the same document created the course.
		winner, findErr := o.courses.ForDocument(ctx, req.OwnerID, doc.ID)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, fmt.Errorf("resolve duplicate course: %w", store.ErrNotFound)
		}
		return &SubmitResult{Course: winner, Document: doc, Outcome: progressOutcome(winner)}, nil
	}

	slog.Info("course submitted", "course_id", c.ID, "document_id", doc.ID, "owner_id", req.OwnerID, "difficulty", req.Difficulty)
	if err := o.publishUploaded(ctx, c, doc, req.Difficulty); err != nil {
		return nil, err
	}
	return &SubmitResult{Course: c, Document: doc, Outcome: OutcomeCreated}, nil
}

// resume handles a submission whose course already exists.
func (o *Orchestrator) resume(ctx context.Context, c *models.Course, doc *models.Document, difficulty models.Difficulty) (*SubmitResult, error) {
	if c.ProcessingStatus != models.StatusFailed {
		return &SubmitResult{Course: c, Document: doc, Outcome: progressOutcome(c)}, nil
	}

	restarted, err := o.courses.Resubmit(ctx, c.ID)
	if errors.Is(err, course.ErrNotResubmittable) {
		// Another submission restarted it first.
		current, loadErr := o.courses.Load(ctx, c.ID)
		if loadErr != nil {
			return nil, loadErr
		}
		return &SubmitResult{Course: current, Document: doc, Outcome: progressOutcome(current)}, nil
	}
	if err != nil {
		return nil, err
	}

	doc, err = o.documents.MarkStatus(ctx, doc.ID, models.StatusPending, "")
	if err != nil {
		return nil, err
	}

	slog.Info("course resubmitted", "course_id", c.ID, "document_id", doc.ID, "previous_error", deref(c.ProcessingError))
	if err := o.publishUploaded(ctx, restarted, doc, difficulty); err != nil {
		return nil, err
	}
	return &SubmitResult{Course: restarted, Document: doc, Outcome: OutcomeResubmitted}, nil
}

// publishUploaded starts the pipeline for c. When the event cannot be
// published the course is failed with the reason, so a later submission can
// restart it.
func (o *Orchestrator) publishUploaded(ctx context.Context, c *models.Course, doc *models.Document, difficulty models.Difficulty) error {
	err := o.bus.Publish(ctx, events.DocumentUploaded, events.DocumentUploadedPayload{
		DocumentID: doc.ID,
		OwnerID:    c.OwnerID,
		FileRef:    doc.FileRef(),
		Difficulty: difficulty,
		CourseID:   c.ID,
	})
	if err == nil {
		return nil
	}

	err = fmt.Errorf("publish %s: %w", events.DocumentUploaded, err)
	if _, failErr := o.courses.Fail(ctx, c.ID, err.Error()); failErr != nil {
		return errors.Join(err, failErr)
	}
	return err
}

func progressOutcome(c *models.Course) Outcome {
	if c.ProcessingStatus == models.StatusCompleted {
		return OutcomeExisting
	}
	return OutcomeInProgress
}

func resolveVariant(t models.CourseType, v *models.CourseVariant) (models.CourseVariant, error) {
	if v == nil {
		def, err := models.DefaultVariant(t)
		if err != nil {
			return models.CourseVariant{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		return def, nil
	}
	if err := v.Validate(t); err != nil {
		return models.CourseVariant{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return *v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// reason flattens an error into the single line stored on a failed record.
func reason(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}
