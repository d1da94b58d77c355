// Package store defines the persistence primitives the pipeline is built on.
// Every entity exposes Create, FindOne, FindOneOrNull, Find and, where the
// entity is mutable, UpdateByFilter. Uniqueness violations surface as
// ErrDuplicate and absent rows as ErrNotFound.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// OrNull turns ErrNotFound into a nil result.
func OrNull[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// Filters match on every non-nil field. An empty filter matches all rows.

type DocumentFilter struct {
	ID          *uuid.UUID
	OwnerID     *uuid.UUID
	Fingerprint *string
}

type CourseFilter struct {
	ID               *uuid.UUID
	OwnerID          *uuid.UUID
	DocumentID       *uuid.UUID
	ProcessingStatus *models.ProcessingStatus
}

type ChapterFilter struct {
	ID       *uuid.UUID
	CourseID *uuid.UUID
	Order    *int
}

type AssessmentFilter struct {
	ID        *uuid.UUID
	ChapterID *uuid.UUID
	CourseID  *uuid.UUID
}

// Updates set every non-nil field. ClearError resets ProcessingError to null
// and wins over a non-nil ProcessingError.

type DocumentUpdate struct {
	ProcessingStatus *models.ProcessingStatus
	ProcessingError  *string
	ClearError       bool
}

type CourseUpdate struct {
	Title              *string
	Description        *string
	Subject            *string
	Level              *models.Difficulty
	Tags               *[]string
	LearningObjectives *[]string
	KeyConcepts        *[]string
	EstimatedDuration  *string
	ChapterCount       *int
	Status             *string
	Visibility         *string
	ProcessingStatus   *models.ProcessingStatus
	ProcessingError    *string
	ClearError         bool
	LastProcessedAt    *time.Time
}

// UpdateByFilter applies the update to the row matched by the filter and
// returns it. Filters are expected to identify a single row; when they do not
// match any, ErrNotFound is returned. Adding a status to the filter makes the
// update a compare-and-set.

type DocumentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	FindOne(ctx context.Context, f DocumentFilter) (*models.Document, error)
	FindOneOrNull(ctx context.Context, f DocumentFilter) (*models.Document, error)
	Find(ctx context.Context, f DocumentFilter) ([]*models.Document, error)
	UpdateByFilter(ctx context.Context, f DocumentFilter, u DocumentUpdate) (*models.Document, error)
}

type CourseRepository interface {
	Create(ctx context.Context, c *models.Course) error
	FindOne(ctx context.Context, f CourseFilter) (*models.Course, error)
	FindOneOrNull(ctx context.Context, f CourseFilter) (*models.Course, error)
	Find(ctx context.Context, f CourseFilter) ([]*models.Course, error)
	UpdateByFilter(ctx context.Context, f CourseFilter, u CourseUpdate) (*models.Course, error)
}

// ChapterRepository returns chapters ordered by Order.
type ChapterRepository interface {
	Create(ctx context.Context, c *models.Chapter) error
	FindOne(ctx context.Context, f ChapterFilter) (*models.Chapter, error)
	FindOneOrNull(ctx context.Context, f ChapterFilter) (*models.Chapter, error)
	Find(ctx context.Context, f ChapterFilter) ([]*models.Chapter, error)
}

type QuizRepository interface {
	Create(ctx context.Context, q *models.Quiz) error
	FindOne(ctx context.Context, f AssessmentFilter) (*models.Quiz, error)
	FindOneOrNull(ctx context.Context, f AssessmentFilter) (*models.Quiz, error)
	Find(ctx context.Context, f AssessmentFilter) ([]*models.Quiz, error)
	// Publish marks the quiz published. Publishing twice keeps the first
	// PublishedAt.
	Publish(ctx context.Context, id uuid.UUID, at time.Time) (*models.Quiz, error)
}

type FlashcardRepository interface {
	Create(ctx context.Context, d *models.FlashcardDeck) error
	FindOne(ctx context.Context, f AssessmentFilter) (*models.FlashcardDeck, error)
	FindOneOrNull(ctx context.Context, f AssessmentFilter) (*models.FlashcardDeck, error)
	Find(ctx context.Context, f AssessmentFilter) ([]*models.FlashcardDeck, error)
}

// Store groups the repositories of one backend.
type Store struct {
	Documents  DocumentRepository
	Courses    CourseRepository
	Chapters   ChapterRepository
	Quizzes    QuizRepository
	Flashcards FlashcardRepository
}

// Ptr is a shorthand for building filters and updates.
func Ptr[T any](v T) *T {
	return &v
}
