// Package course owns course, chapter and assessment records: writes go to
// the store first and the cache follows, reads go through the cache.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/cache"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

type Service struct {
	store    *store.Store
	courses  *cache.Entity[*models.Course]
	chapters *cache.Entity[*models.Chapter]
	lists    *cache.Entity[[]*models.Chapter]
	now      func() time.Time
}

func NewService(st *store.Store, c cache.Store, ttl time.Duration) *Service {
	return &Service{
		store:    st,
		courses:  cache.NewEntity[*models.Course](c, ttl),
		chapters: cache.NewEntity[*models.Chapter](c, ttl),
		lists:    cache.NewEntity[[]*models.Chapter](c, ttl),
		now:      time.Now,
	}
}

// Create inserts a pending course and caches it. A second course for the
// same (owner, document) fails with store.ErrDuplicate.
func (s *Service) Create(ctx context.Context, c *models.Course) error {
	if err := c.Variant.Validate(c.CourseType); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	if c.ProcessingStatus == "" {
		c.ProcessingStatus = models.StatusPending
	}
	if c.Status == "" {
		c.Status = models.CourseStatusDraft
	}
	if c.Visibility == "" {
		c.Visibility = models.VisibilityPrivate
	}
	if err := s.store.Courses.Create(ctx, c); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	s.courses.Put(ctx, cache.CourseKey(c.ID), c)
	return nil
}

// ForDocument returns the owner's course for a document straight from the
// store, or nil when there is none.
func (s *Service) ForDocument(ctx context.Context, owner, documentID uuid.UUID) (*models.Course, error) {
	c, err := s.store.Courses.FindOneOrNull(ctx, store.CourseFilter{OwnerID: &owner, DocumentID: &documentID})
	if err != nil {
		return nil, fmt.Errorf("find course for document: %w", err)
	}
	return c, nil
}

// Load reads a course from the store, bypassing the cache.
func (s *Service) Load(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := s.store.Courses.FindOne(ctx, store.CourseFilter{ID: &id})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}

// Get returns an owner's course, reading through the cache. Courses of other
// owners are reported as not found.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*models.Course, error) {
	c, err := s.courses.Get(ctx, cache.CourseKey(id), func(ctx context.Context) (*models.Course, error) {
		return s.store.Courses.FindOne(ctx, store.CourseFilter{ID: &id})
	})
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if c.OwnerID != owner {
		return nil, fmt.Errorf("get course: %w", store.ErrNotFound)
	}
	return c, nil
}

// List returns an owner's courses, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]*models.Course, error) {
	list, err := s.store.Courses.Find(ctx, store.CourseFilter{OwnerID: &owner})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return list, nil
}

// UpdateRequest carries owner edits. Nil fields are left untouched.
type UpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=10000"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	Status      *string   `json:"status" validate:"omitempty,oneof=draft published archived"`
	Visibility  *string   `json:"visibility" validate:"omitempty,oneof=private public"`
}

func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, req UpdateRequest) (*models.Course, error) {
	key := cache.CourseKey(id)
	s.courses.Invalidate(ctx, key)

	c, err := s.store.Courses.UpdateByFilter(ctx,
		store.CourseFilter{ID: &id, OwnerID: &owner},
		store.CourseUpdate{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			Status:      req.Status,
			Visibility:  req.Visibility,
		})
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	s.courses.Set(ctx, key, c)
	return c, nil
}

// MarkProcessing records that generation has started.
func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := s.store.Courses.UpdateByFilter(ctx, store.CourseFilter{ID: &id}, store.CourseUpdate{
		ProcessingStatus: store.Ptr(models.StatusProcessing),
		ClearError:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("mark course processing: %w", err)
	}
	s.courses.Invalidate(ctx, cache.CourseKey(id))
	return c, nil
}

// Complete stores the generated course body and marks the course completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, p *models.CoursePayload) (*models.Course, error) {
	u := store.CourseUpdate{
		Title:              &p.Title,
		Description:        &p.Description,
		Subject:            &p.Subject,
		Tags:               &p.Tags,
		LearningObjectives: &p.LearningObjectives,
		KeyConcepts:        &p.KeyConcepts,
		EstimatedDuration:  &p.EstimatedDuration,
		ChapterCount:       store.Ptr(len(p.Chapters)),
		ProcessingStatus:   store.Ptr(models.StatusCompleted),
		ClearError:         true,
		LastProcessedAt:    store.Ptr(s.now()),
	}
	if p.Level != "" {
		if lvl, err := models.ParseDifficulty(strings.ToLower(strings.TrimSpace(string(p.Level)))); err == nil {
			u.Level = &lvl
		} else {
			slog.Warn("ignoring generated course level", "course_id", id, "level", p.Level)
		}
	}

	key := cache.CourseKey(id)
	s.courses.Invalidate(ctx, key)
	c, err := s.store.Courses.UpdateByFilter(ctx, store.CourseFilter{ID: &id}, u)
	if err != nil {
		return nil, fmt.Errorf("complete course: %w", err)
	}
	s.courses.Set(ctx, key, c)
	return c, nil
}

// Fail records reason and marks the course failed. The cached snapshot is
// dropped rather than refreshed.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, reason string) (*models.Course, error) {
	c, err := s.store.Courses.UpdateByFilter(ctx, store.CourseFilter{ID: &id}, store.CourseUpdate{
		ProcessingStatus: store.Ptr(models.StatusFailed),
		ProcessingError:  &reason,
		LastProcessedAt:  store.Ptr(s.now()),
	})
	s.courses.Invalidate(ctx, cache.CourseKey(id))
	if err != nil {
		return nil, fmt.Errorf("fail course: %w", err)
	}
	slog.Warn("course generation failed", "course_id", id, "reason", reason)
	return c, nil
}

// ErrNotResubmittable is returned when a course left the failed state before
// a resubmission could claim it.
var ErrNotResubmittable = errors.New("course is not in failed state")

// Resubmit moves a failed course back to pending. Only one of several
// concurrent callers wins; the others get ErrNotResubmittable.
func (s *Service) Resubmit(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := s.store.Courses.UpdateByFilter(ctx,
		store.CourseFilter{ID: &id, ProcessingStatus: store.Ptr(models.StatusFailed)},
		store.CourseUpdate{ProcessingStatus: store.Ptr(models.StatusPending), ClearError: true},
	)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotResubmittable
	}
	if err != nil {
		return nil, fmt.Errorf("resubmit course: %w", err)
	}
	s.courses.Put(ctx, cache.CourseKey(id), c)
	return c, nil
}
