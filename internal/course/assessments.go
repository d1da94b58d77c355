package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

func (s *Service) HasQuiz(ctx context.Context, chapterID uuid.UUID) (bool, error) {
	q, err := s.store.Quizzes.FindOneOrNull(ctx, store.AssessmentFilter{ChapterID: &chapterID})
	if err != nil {
		return false, fmt.Errorf("find quiz: %w", err)
	}
	return q != nil, nil
}

func (s *Service) HasFlashcards(ctx context.Context, chapterID uuid.UUID) (bool, error) {
	d, err := s.store.Flashcards.FindOneOrNull(ctx, store.AssessmentFilter{ChapterID: &chapterID})
	if err != nil {
		return false, fmt.Errorf("find flashcard deck: %w", err)
	}
	return d != nil, nil
}

// SaveQuiz stores q unless the chapter already has a quiz. The boolean
// reports whether q was stored.
func (s *Service) SaveQuiz(ctx context.Context, q *models.Quiz) (bool, error) {
	if q.PassMark == 0 {
		q.PassMark = models.DefaultPassMark
	}
	if err := s.store.Quizzes.Create(ctx, q); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create quiz: %w", err)
	}
	return true, nil
}

// SaveFlashcards stores d unless the chapter already has a deck.
func (s *Service) SaveFlashcards(ctx context.Context, d *models.FlashcardDeck) (bool, error) {
	if err := s.store.Flashcards.Create(ctx, d); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create flashcard deck: %w", err)
	}
	return true, nil
}

func (s *Service) Quiz(ctx context.Context, owner, chapterID uuid.UUID) (*models.Quiz, error) {
	if _, err := s.Chapter(ctx, owner, chapterID); err != nil {
		return nil, err
	}
	q, err := s.store.Quizzes.FindOne(ctx, store.AssessmentFilter{ChapterID: &chapterID})
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

// PublishQuiz makes the chapter's quiz available to learners. It is
// idempotent.
func (s *Service) PublishQuiz(ctx context.Context, owner, chapterID uuid.UUID) (*models.Quiz, error) {
	q, err := s.Quiz(ctx, owner, chapterID)
	if err != nil {
		return nil, err
	}
	if q.IsPublished {
		return q, nil
	}
	published, err := s.store.Quizzes.Publish(ctx, q.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("publish quiz: %w", err)
	}
	slog.Info("quiz published", "quiz_id", q.ID, "chapter_id", chapterID)
	return published, nil
}

func (s *Service) Flashcards(ctx context.Context, owner, chapterID uuid.UUID) (*models.FlashcardDeck, error) {
	if _, err := s.Chapter(ctx, owner, chapterID); err != nil {
		return nil, err
	}
	d, err := s.store.Flashcards.FindOne(ctx, store.AssessmentFilter{ChapterID: &chapterID})
	if err != nil {
		return nil, fmt.Errorf("get flashcard deck: %w", err)
	}
	return d, nil
}
