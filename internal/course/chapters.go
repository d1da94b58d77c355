package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/cache"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

const defaultChapterDuration = "1 min"

// EnsureChapter returns the chapter at position order, creating it from p
// when it does not exist yet. The boolean reports creation.
func (s *Service) EnsureChapter(ctx context.Context, courseID uuid.UUID, order int, p models.ChapterPayload) (*models.Chapter, bool, error) {
	f := store.ChapterFilter{CourseID: &courseID, Order: &order}
	existing, err := s.store.Chapters.FindOneOrNull(ctx, f)
	if err != nil {
		return nil, false, fmt.Errorf("find chapter %d: %w", order, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	ch := &models.Chapter{
		CourseID:           courseID,
		Title:              p.Title,
		Description:        p.Description,
		Content:            p.Content,
		Order:              order,
		EstimatedDuration:  p.EstimatedDuration,
		LearningObjectives: p.LearningObjectives,
		KeyConcepts:        p.KeyConcepts,
	}
	if ch.Title == "" {
		ch.Title = fmt.Sprintf("Chapter %d", order)
	}
	if ch.EstimatedDuration == "" {
		ch.EstimatedDuration = defaultChapterDuration
	}

	if err := s.store.Chapters.Create(ctx, ch); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, false, fmt.Errorf("create chapter %d: %w", order, err)
		}
		winner, findErr := s.store.Chapters.FindOne(ctx, f)
		if findErr != nil {
			return nil, false, fmt.Errorf("resolve duplicate chapter %d: %w", order, findErr)
		}
		return winner, false, nil
	}

	s.chapters.Put(ctx, cache.ChapterKey(ch.ID), ch)
	return ch, true, nil
}

// InvalidateChapterList drops the cached chapter list of a course.
func (s *Service) InvalidateChapterList(ctx context.Context, courseID uuid.UUID) {
	s.lists.Invalidate(ctx, cache.CourseChaptersKey(courseID))
}

// Chapters lists an owner's course chapters in order.
func (s *Service) Chapters(ctx context.Context, owner, courseID uuid.UUID) ([]*models.Chapter, error) {
	if _, err := s.Get(ctx, owner, courseID); err != nil {
		return nil, err
	}
	list, err := s.lists.Get(ctx, cache.CourseChaptersKey(courseID), func(ctx context.Context) ([]*models.Chapter, error) {
		return s.store.Chapters.Find(ctx, store.ChapterFilter{CourseID: &courseID})
	})
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return list, nil
}

// Chapter returns one chapter if its course belongs to owner.
func (s *Service) Chapter(ctx context.Context, owner, id uuid.UUID) (*models.Chapter, error) {
	ch, err := s.chapters.Get(ctx, cache.ChapterKey(id), func(ctx context.Context) (*models.Chapter, error) {
		return s.store.Chapters.FindOne(ctx, store.ChapterFilter{ID: &id})
	})
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	if _, err := s.Get(ctx, owner, ch.CourseID); err != nil {
		return nil, err
	}
	return ch, nil
}
