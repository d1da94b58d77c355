// Package memory is an in-process store backend. It enforces the same unique
// constraints as the SQL schema and hands out copies, so callers never share
// state with the store.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

type db struct {
	mu         sync.RWMutex
	documents  []*models.Document
	courses    []*models.Course
	chapters   []*models.Chapter
	quizzes    []*models.Quiz
	flashcards []*models.FlashcardDeck
}

// New returns a Store whose repositories share one in-memory database.
func New() *store.Store {
	d := &db{}
	return &store.Store{
		Documents:  &documents{d},
		Courses:    &courses{d},
		Chapters:   &chapters{d},
		Quizzes:    &quizzes{d},
		Flashcards: &flashcards{d},
	}
}

func stamp(id *uuid.UUID, created *time.Time) time.Time {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	return now
}

func eq[T comparable](want *T, got T) bool {
	return want == nil || *want == got
}

func findOne[T any](items []*T, match func(*T) bool, clone func(*T) *T) (*T, error) {
	for _, it := range items {
		if match(it) {
			return clone(it), nil
		}
	}
	return nil, store.ErrNotFound
}

func findAll[T any](items []*T, match func(*T) bool, clone func(*T) *T) []*T {
	out := make([]*T, 0)
	for _, it := range items {
		if match(it) {
			out = append(out, clone(it))
		}
	}
	return out
}

// documents

type documents struct{ db *db }

func cloneDocument(d *models.Document) *models.Document {
	c := *d
	if d.ProcessingError != nil {
		c.ProcessingError = store.Ptr(*d.ProcessingError)
	}
	return &c
}

func matchDocument(f store.DocumentFilter) func(*models.Document) bool {
	return func(d *models.Document) bool {
		return eq(f.ID, d.ID) && eq(f.OwnerID, d.OwnerID) && eq(f.Fingerprint, d.Fingerprint)
	}
}

func (r *documents) Create(_ context.Context, d *models.Document) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.documents {
		if existing.ID == d.ID || (existing.OwnerID == d.OwnerID && existing.Fingerprint == d.Fingerprint) {
			return store.ErrDuplicate
		}
	}
	d.UpdatedAt = stamp(&d.ID, &d.CreatedAt)
	r.db.documents = append(r.db.documents, cloneDocument(d))
	return nil
}

func (r *documents) FindOne(_ context.Context, f store.DocumentFilter) (*models.Document, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findOne(r.db.documents, matchDocument(f), cloneDocument)
}

func (r *documents) FindOneOrNull(ctx context.Context, f store.DocumentFilter) (*models.Document, error) {
	d, err := r.FindOne(ctx, f)
	return store.OrNull(d, err)
}

func (r *documents) Find(_ context.Context, f store.DocumentFilter) ([]*models.Document, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findAll(r.db.documents, matchDocument(f), cloneDocument), nil
}

func (r *documents) UpdateByFilter(_ context.Context, f store.DocumentFilter, u store.DocumentUpdate) (*models.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	match := matchDocument(f)
	for _, d := range r.db.documents {
		if !match(d) {
			continue
		}
		if u.ProcessingStatus != nil {
			d.ProcessingStatus = *u.ProcessingStatus
		}
		setError(&d.ProcessingError, u.ProcessingError, u.ClearError)
		d.UpdatedAt = time.Now().UTC()
		return cloneDocument(d), nil
	}
	return nil, store.ErrNotFound
}

func setError(dst **string, v *string, clear bool) {
	switch {
	case clear:
		*dst = nil
	case v != nil:
		*dst = store.Ptr(*v)
	}
}

// courses

type courses struct{ db *db }

func cloneCourse(c *models.Course) *models.Course {
	out := *c
	out.Tags = slices.Clone(c.Tags)
	out.LearningObjectives = slices.Clone(c.LearningObjectives)
	out.KeyConcepts = slices.Clone(c.KeyConcepts)
	if c.ProcessingError != nil {
		out.ProcessingError = store.Ptr(*c.ProcessingError)
	}
	if c.LastProcessedAt != nil {
		out.LastProcessedAt = store.Ptr(*c.LastProcessedAt)
	}
	return &out
}

func matchCourse(f store.CourseFilter) func(*models.Course) bool {
	return func(c *models.Course) bool {
		return eq(f.ID, c.ID) && eq(f.OwnerID, c.OwnerID) &&
			eq(f.DocumentID, c.DocumentID) && eq(f.ProcessingStatus, c.ProcessingStatus)
	}
}

func (r *courses) Create(_ context.Context, c *models.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.courses {
		if existing.ID == c.ID || (existing.OwnerID == c.OwnerID && existing.DocumentID == c.DocumentID) {
			return store.ErrDuplicate
		}
	}
	c.UpdatedAt = stamp(&c.ID, &c.CreatedAt)
	r.db.courses = append(r.db.courses, cloneCourse(c))
	return nil
}

func (r *courses) FindOne(_ context.Context, f store.CourseFilter) (*models.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findOne(r.db.courses, matchCourse(f), cloneCourse)
}

func (r *courses) FindOneOrNull(ctx context.Context, f store.CourseFilter) (*models.Course, error) {
	c, err := r.FindOne(ctx, f)
	return store.OrNull(c, err)
}

func (r *courses) Find(_ context.Context, f store.CourseFilter) ([]*models.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := findAll(r.db.courses, matchCourse(f), cloneCourse)
	slices.SortStableFunc(out, func(a, b *models.Course) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *courses) UpdateByFilter(_ context.Context, f store.CourseFilter, u store.CourseUpdate) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	match := matchCourse(f)
	for _, c := range r.db.courses {
		if !match(c) {
			continue
		}
		applyCourseUpdate(c, u)
		c.UpdatedAt = time.Now().UTC()
		return cloneCourse(c), nil
	}
	return nil, store.ErrNotFound
}

func applyCourseUpdate(c *models.Course, u store.CourseUpdate) {
	set(&c.Title, u.Title)
	set(&c.Description, u.Description)
	set(&c.Subject, u.Subject)
	set(&c.Level, u.Level)
	set(&c.EstimatedDuration, u.EstimatedDuration)
	set(&c.ChapterCount, u.ChapterCount)
	set(&c.Status, u.Status)
	set(&c.Visibility, u.Visibility)
	set(&c.ProcessingStatus, u.ProcessingStatus)
	if u.Tags != nil {
		c.Tags = slices.Clone(*u.Tags)
	}
	if u.LearningObjectives != nil {
		c.LearningObjectives = slices.Clone(*u.LearningObjectives)
	}
	if u.KeyConcepts != nil {
		c.KeyConcepts = slices.Clone(*u.KeyConcepts)
	}
	if u.LastProcessedAt != nil {
		c.LastProcessedAt = store.Ptr(*u.LastProcessedAt)
	}
	setError(&c.ProcessingError, u.ProcessingError, u.ClearError)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// chapters

type chapters struct{ db *db }

func cloneChapter(c *models.Chapter) *models.Chapter {
	out := *c
	out.LearningObjectives = slices.Clone(c.LearningObjectives)
	out.KeyConcepts = slices.Clone(c.KeyConcepts)
	return &out
}

func matchChapter(f store.ChapterFilter) func(*models.Chapter) bool {
	return func(c *models.Chapter) bool {
		return eq(f.ID, c.ID) && eq(f.CourseID, c.CourseID) && eq(f.Order, c.Order)
	}
}

func (r *chapters) Create(_ context.Context, c *models.Chapter) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.chapters {
		if existing.ID == c.ID || (existing.CourseID == c.CourseID && existing.Order == c.Order) {
			return store.ErrDuplicate
		}
	}
	stamp(&c.ID, &c.CreatedAt)
	r.db.chapters = append(r.db.chapters, cloneChapter(c))
	return nil
}

func (r *chapters) FindOne(_ context.Context, f store.ChapterFilter) (*models.Chapter, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findOne(r.db.chapters, matchChapter(f), cloneChapter)
}

func (r *chapters) FindOneOrNull(ctx context.Context, f store.ChapterFilter) (*models.Chapter, error) {
	c, err := r.FindOne(ctx, f)
	return store.OrNull(c, err)
}

func (r *chapters) Find(_ context.Context, f store.ChapterFilter) ([]*models.Chapter, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := findAll(r.db.chapters, matchChapter(f), cloneChapter)
	slices.SortStableFunc(out, func(a, b *models.Chapter) int { return a.Order - b.Order })
	return out, nil
}

// quizzes

type quizzes struct{ db *db }

func cloneQuiz(q *models.Quiz) *models.Quiz {
	out := *q
	out.Questions = slices.Clone(q.Questions)
	if q.PublishedAt != nil {
		out.PublishedAt = store.Ptr(*q.PublishedAt)
	}
	return &out
}

func matchQuiz(f store.AssessmentFilter) func(*models.Quiz) bool {
	return func(q *models.Quiz) bool {
		return eq(f.ID, q.ID) && eq(f.ChapterID, q.ChapterID) && eq(f.CourseID, q.CourseID)
	}
}

func (r *quizzes) Create(_ context.Context, q *models.Quiz) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.quizzes {
		if existing.ID == q.ID || existing.ChapterID == q.ChapterID {
			return store.ErrDuplicate
		}
	}
	stamp(&q.ID, &q.CreatedAt)
	r.db.quizzes = append(r.db.quizzes, cloneQuiz(q))
	return nil
}

func (r *quizzes) FindOne(_ context.Context, f store.AssessmentFilter) (*models.Quiz, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findOne(r.db.quizzes, matchQuiz(f), cloneQuiz)
}

func (r *quizzes) FindOneOrNull(ctx context.Context, f store.AssessmentFilter) (*models.Quiz, error) {
	q, err := r.FindOne(ctx, f)
	return store.OrNull(q, err)
}

func (r *quizzes) Find(_ context.Context, f store.AssessmentFilter) ([]*models.Quiz, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findAll(r.db.quizzes, matchQuiz(f), cloneQuiz), nil
}

func (r *quizzes) Publish(_ context.Context, id uuid.UUID, at time.Time) (*models.Quiz, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, q := range r.db.quizzes {
		if q.ID != id {
			continue
		}
		if !q.IsPublished {
			q.IsPublished = true
			q.PublishedAt = &at
		}
		return cloneQuiz(q), nil
	}
	return nil, store.ErrNotFound
}

// flashcards

type flashcards struct{ db *db }

func cloneDeck(d *models.FlashcardDeck) *models.FlashcardDeck {
	out := *d
	out.Tags = slices.Clone(d.Tags)
	out.Cards = slices.Clone(d.Cards)
	return &out
}

func matchDeck(f store.AssessmentFilter) func(*models.FlashcardDeck) bool {
	return func(d *models.FlashcardDeck) bool {
		return eq(f.ID, d.ID) && eq(f.ChapterID, d.ChapterID) && eq(f.CourseID, d.CourseID)
	}
}

func (r *flashcards) Create(_ context.Context, d *models.FlashcardDeck) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.flashcards {
		if existing.ID == d.ID || existing.ChapterID == d.ChapterID {
			return store.ErrDuplicate
		}
	}
	stamp(&d.ID, &d.CreatedAt)
	r.db.flashcards = append(r.db.flashcards, cloneDeck(d))
	return nil
}

func (r *flashcards) FindOne(_ context.Context, f store.AssessmentFilter) (*models.FlashcardDeck, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findOne(r.db.flashcards, matchDeck(f), cloneDeck)
}

func (r *flashcards) FindOneOrNull(ctx context.Context, f store.AssessmentFilter) (*models.FlashcardDeck, error) {
	d, err := r.FindOne(ctx, f)
	return store.OrNull(d, err)
}

func (r *flashcards) Find(_ context.Context, f store.AssessmentFilter) ([]*models.FlashcardDeck, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return findAll(r.db.flashcards, matchDeck(f), cloneDeck), nil
}
