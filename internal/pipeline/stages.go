package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nikhilbhutani/coursegen/internal/events"
	"github.com/nikhilbhutani/coursegen/internal/llm"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/prompt"
	"github.com/nikhilbhutani/coursegen/internal/store"
	"github.com/nikhilbhutani/coursegen/internal/structured"
	"github.com/nikhilbhutani/coursegen/pkg/tokenizer"
)

// Register subscribes the stage handlers on the orchestrator's bus.
func (o *Orchestrator) Register() {
	events.Subscribe(o.bus, events.DocumentUploaded, o.HandleDocumentUploaded)
	events.Subscribe(o.bus, events.ChaptersReady, o.HandleChaptersReady)
	events.Subscribe(o.bus, events.QuizRequested, o.HandleQuizRequested)
	events.Subscribe(o.bus, events.FlashcardsRequested, o.HandleFlashcardsRequested)
}

// HandleDocumentUploaded generates the course body. Every failure after the
// course is claimed ends in the failed state and is not returned.
func (o *Orchestrator) HandleDocumentUploaded(ctx context.Context, p events.DocumentUploadedPayload) error {
	log := slog.With("event", events.DocumentUploaded, "course_id", p.CourseID, "document_id", p.DocumentID)

	c, err := o.courses.Load(ctx, p.CourseID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("course no longer exists, dropping event")
		return nil
	}
	if err != nil {
		return err
	}
	switch c.ProcessingStatus {
	case models.StatusCompleted, models.StatusFailed:
		log.Info("course already settled, skipping redelivery", "status", c.ProcessingStatus)
		return nil
	}

	if _, err := o.courses.MarkProcessing(ctx, c.ID); err != nil {
		return err
	}
	if _, err := o.documents.MarkStatus(ctx, p.DocumentID, models.StatusProcessing, ""); err != nil {
		return o.failCourse(ctx, p, err)
	}

	payload, err := o.generateCourse(ctx, p)
	if err != nil {
		return o.failCourse(ctx, p, err)
	}

	if _, err := o.courses.Complete(ctx, c.ID, payload); err != nil {
		return o.failCourse(ctx, p, err)
	}
	if _, err := o.documents.MarkStatus(ctx, p.DocumentID, models.StatusCompleted, ""); err != nil {
		log.Warn("failed to mark document completed", "error", err)
	}

	err = o.bus.Publish(ctx, events.ChaptersReady, events.ChaptersReadyPayload{
		CourseID:   c.ID,
		OwnerID:    p.OwnerID,
		Chapters:   payload.Chapters,
		Difficulty: p.Difficulty,
	})
	if err != nil {
		return o.failCourse(ctx, p, fmt.Errorf("publish %s: %w", events.ChaptersReady, err))
	}

	log.Info("course generated", "chapters", len(payload.Chapters), "title", payload.Title)
	return nil
}

func (o *Orchestrator) generateCourse(ctx context.Context, p events.DocumentUploadedPayload) (*models.CoursePayload, error) {
	text, err := o.extractor.ExtractText(ctx, p.FileRef)
	if err != nil {
		return nil, err
	}
	if truncated, cut := tokenizer.Truncate(text, o.cfg.MaxInputTokens); cut {
		slog.Warn("document truncated to input budget",
			"course_id", p.CourseID,
			"tokens", tokenizer.CountTokens(text),
			"max_tokens", o.cfg.MaxInputTokens,
		)
		text = truncated
	}

	system, err := o.prompts.Compile(prompt.Course, map[string]string{
		"difficulty": string(p.Difficulty),
	})
	if err != nil {
		return nil, err
	}

	res, err := o.llm.Generate(ctx, llm.GenerationRequest{
		PromptTemplate: prompt.Course,
		RenderedPrompt: system,
		InputText:      text,
	}, "")
	if err != nil {
		return nil, err
	}
	if res.FallbackFrom != "" {
		slog.Info("course generated by fallback provider", "course_id", p.CourseID, "provider", res.Provider, "failed_provider", res.FallbackFrom)
	}

	return structured.Decode[models.CoursePayload](res.Text())
}

// failCourse records cause on the course and its document. Only a failure
// to record the state is returned.
func (o *Orchestrator) failCourse(ctx context.Context, p events.DocumentUploadedPayload, cause error) error {
	msg := reason(cause)
	var errs []error
	if _, err := o.courses.Fail(ctx, p.CourseID, msg); err != nil {
		errs = append(errs, err)
	}
	if _, err := o.documents.MarkStatus(ctx, p.DocumentID, models.StatusFailed, msg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		slog.Error("failed to record course failure", "course_id", p.CourseID, "cause", cause, "error", errors.Join(errs...))
		return errors.Join(errs...)
	}
	return nil
}

// HandleChaptersReady materializes chapters in payload order and requests
// their assessments. Chapters that already exist are reused.
func (o *Orchestrator) HandleChaptersReady(ctx context.Context, p events.ChaptersReadyPayload) error {
	chapters := make([]*models.Chapter, 0, len(p.Chapters))
	created := 0
	for i, cp := range p.Chapters {
		ch, isNew, err := o.courses.EnsureChapter(ctx, p.CourseID, i+1, cp)
		if err != nil {
			return err
		}
		if isNew {
			created++
		}
		chapters = append(chapters, ch)
	}
	o.courses.InvalidateChapterList(ctx, p.CourseID)

	var errs []error
	for _, ch := range chapters {
		req := events.ChapterAssessmentPayload{
			ChapterID:      ch.ID,
			CourseID:       p.CourseID,
			OwnerID:        p.OwnerID,
			ChapterTitle:   ch.Title,
			ChapterContent: ch.Content,
			Difficulty:     p.Difficulty,
		}
		for _, event := range []string{events.QuizRequested, events.FlashcardsRequested} {
			if err := o.bus.Publish(ctx, event, req); err != nil {
				errs = append(errs, fmt.Errorf("publish %s for chapter %s: %w", event, ch.ID, err))
			}
		}
	}

	slog.Info("chapters ready", "course_id", p.CourseID, "chapters", len(chapters), "created", created)
	return errors.Join(errs...)
}

// HandleQuizRequested generates a chapter quiz. Generation and parse
// failures are logged and dropped; only store errors are returned.
func (o *Orchestrator) HandleQuizRequested(ctx context.Context, p events.ChapterAssessmentPayload) error {
	log := slog.With("event", events.QuizRequested, "chapter_id", p.ChapterID, "course_id", p.CourseID)

	exists, err := o.courses.HasQuiz(ctx, p.ChapterID)
	if err != nil {
		return err
	}
	if exists {
		log.Info("quiz already exists, skipping")
		return nil
	}

	qp, err := generateAssessment[models.QuizPayload](ctx, o, prompt.Quiz, p, o.cfg.QuizQuestionCount)
	if err != nil {
		log.Warn("quiz generation failed", "error", err)
		return nil
	}

	q := &models.Quiz{
		CourseID:    p.CourseID,
		ChapterID:   p.ChapterID,
		OwnerID:     p.OwnerID,
		Title:       orDefault(qp.Title, p.ChapterTitle+" Quiz"),
		Description: qp.Description,
		Difficulty:  difficultyOr(qp.Difficulty, p.Difficulty),
		PassMark:    passMark(qp.PassingScore),
		TimeLimit:   qp.TimeLimit,
		Questions:   qp.Questions,
	}
	saved, err := o.courses.SaveQuiz(ctx, q)
	if err != nil {
		return err
	}
	if saved {
		log.Info("quiz generated", "quiz_id", q.ID, "questions", len(q.Questions))
	}
	return nil
}

// HandleFlashcardsRequested generates a chapter flashcard deck, with the
// same failure handling as HandleQuizRequested.
func (o *Orchestrator) HandleFlashcardsRequested(ctx context.Context, p events.ChapterAssessmentPayload) error {
	log := slog.With("event", events.FlashcardsRequested, "chapter_id", p.ChapterID, "course_id", p.CourseID)

	exists, err := o.courses.HasFlashcards(ctx, p.ChapterID)
	if err != nil {
		return err
	}
	if exists {
		log.Info("flashcard deck already exists, skipping")
		return nil
	}

	fp, err := generateAssessment[models.FlashcardsPayload](ctx, o, prompt.Flashcards, p, o.cfg.FlashcardCount)
	if err != nil {
		log.Warn("flashcard generation failed", "error", err)
		return nil
	}

	d := &models.FlashcardDeck{
		CourseID:    p.CourseID,
		ChapterID:   p.ChapterID,
		OwnerID:     p.OwnerID,
		Title:       orDefault(fp.Title, p.ChapterTitle+" Flashcards"),
		Description: fp.Description,
		Difficulty:  p.Difficulty,
		Tags:        fp.Tags,
		Cards:       fp.Flashcards,
	}
	saved, err := o.courses.SaveFlashcards(ctx, d)
	if err != nil {
		return err
	}
	if saved {
		log.Info("flashcards generated", "deck_id", d.ID, "cards", len(d.Cards))
	}
	return nil
}

func generateAssessment[T any](ctx context.Context, o *Orchestrator, template string, p events.ChapterAssessmentPayload, count int) (*T, error) {
	system, err := o.prompts.Compile(template, map[string]string{
		"title":      p.ChapterTitle,
		"difficulty": string(p.Difficulty),
		"count":      strconv.Itoa(count),
	})
	if err != nil {
		return nil, err
	}
	res, err := o.llm.Generate(ctx, llm.GenerationRequest{
		PromptTemplate: template,
		RenderedPrompt: system,
		InputText:      p.ChapterContent,
	}, "")
	if err != nil {
		return nil, err
	}
	return structured.Decode[T](res.Text())
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func difficultyOr(d, fallback models.Difficulty) models.Difficulty {
	if parsed, err := models.ParseDifficulty(string(d)); err == nil && d != "" {
		return parsed
	}
	return fallback
}

// passMark converts a percentage into a fraction, keeping the default for
// values outside (0, 100].
func passMark(percent int) float64 {
	if percent <= 0 || percent > 100 {
		return models.DefaultPassMark
	}
	return float64(percent) / 100
}
