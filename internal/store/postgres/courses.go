package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

const courseColumns = `id, owner_id, document_id, title, description, subject, level, tags, learning_objectives,
	key_concepts, estimated_duration, chapter_count, status, visibility, course_type, variant,
	processing_status, processing_error, last_processed_at, created_at, updated_at`

type Courses struct {
	db *pgxpool.Pool
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.OwnerID, &c.DocumentID, &c.Title, &c.Description, &c.Subject, &c.Level,
		&c.Tags, &c.LearningObjectives, &c.KeyConcepts, &c.EstimatedDuration, &c.ChapterCount,
		&c.Status, &c.Visibility, &c.CourseType, &c.Variant, &c.ProcessingStatus, &c.ProcessingError,
		&c.LastProcessedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func courseWhere(q *query, f store.CourseFilter) {
	if f.ID != nil {
		q.where("id", *f.ID)
	}
	if f.OwnerID != nil {
		q.where("owner_id", *f.OwnerID)
	}
	if f.DocumentID != nil {
		q.where("document_id", *f.DocumentID)
	}
	if f.ProcessingStatus != nil {
		q.where("processing_status", *f.ProcessingStatus)
	}
}

func (r *Courses) Create(ctx context.Context, c *models.Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO courses (id, owner_id, document_id, title, description, subject, level, tags,
		 learning_objectives, key_concepts, estimated_duration, chapter_count, status, visibility,
		 course_type, variant, processing_status, processing_error, last_processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING created_at, updated_at`,
		c.ID, c.OwnerID, c.DocumentID, c.Title, c.Description, c.Subject, c.Level, orEmpty(c.Tags),
		orEmpty(c.LearningObjectives), orEmpty(c.KeyConcepts), c.EstimatedDuration, c.ChapterCount,
		c.Status, c.Visibility, c.CourseType, c.Variant, c.ProcessingStatus, c.ProcessingError, c.LastProcessedAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapErr("insert course", err)
	}
	return nil
}

func (r *Courses) FindOne(ctx context.Context, f store.CourseFilter) (*models.Course, error) {
	q := &query{}
	courseWhere(q, f)
	c, err := scanCourse(r.db.QueryRow(ctx, "SELECT "+courseColumns+" FROM courses"+q.whereClause()+" LIMIT 1", q.args...))
	if err != nil {
		return nil, mapErr("find course", err)
	}
	return c, nil
}

func (r *Courses) FindOneOrNull(ctx context.Context, f store.CourseFilter) (*models.Course, error) {
	c, err := r.FindOne(ctx, f)
	return store.OrNull(c, err)
}

func (r *Courses) Find(ctx context.Context, f store.CourseFilter) ([]*models.Course, error) {
	q := &query{}
	courseWhere(q, f)
	rows, err := r.db.Query(ctx, "SELECT "+courseColumns+" FROM courses"+q.whereClause()+" ORDER BY created_at DESC", q.args...)
	if err != nil {
		return nil, mapErr("list courses", err)
	}
	courses, err := collect(rows, scanCourse)
	if err != nil {
		return nil, mapErr("scan courses", err)
	}
	return courses, nil
}

func (r *Courses) UpdateByFilter(ctx context.Context, f store.CourseFilter, u store.CourseUpdate) (*models.Course, error) {
	q := &query{}
	if u.Title != nil {
		q.set("title", *u.Title)
	}
	if u.Description != nil {
		q.set("description", *u.Description)
	}
	if u.Subject != nil {
		q.set("subject", *u.Subject)
	}
	if u.Level != nil {
		q.set("level", *u.Level)
	}
	if u.Tags != nil {
		q.set("tags", orEmpty(*u.Tags))
	}
	if u.LearningObjectives != nil {
		q.set("learning_objectives", orEmpty(*u.LearningObjectives))
	}
	if u.KeyConcepts != nil {
		q.set("key_concepts", orEmpty(*u.KeyConcepts))
	}
	if u.EstimatedDuration != nil {
		q.set("estimated_duration", *u.EstimatedDuration)
	}
	if u.ChapterCount != nil {
		q.set("chapter_count", *u.ChapterCount)
	}
	if u.Status != nil {
		q.set("status", *u.Status)
	}
	if u.Visibility != nil {
		q.set("visibility", *u.Visibility)
	}
	if u.ProcessingStatus != nil {
		q.set("processing_status", *u.ProcessingStatus)
	}
	switch {
	case u.ClearError:
		q.setNull("processing_error")
	case u.ProcessingError != nil:
		q.set("processing_error", *u.ProcessingError)
	}
	if u.LastProcessedAt != nil {
		q.set("last_processed_at", *u.LastProcessedAt)
	}
	q.sets = append(q.sets, "updated_at = now()")
	courseWhere(q, f)

	c, err := scanCourse(r.db.QueryRow(ctx,
		"UPDATE courses SET "+q.setClause()+q.whereClause()+" RETURNING "+courseColumns, q.args...))
	if err != nil {
		return nil, mapErr("update course", err)
	}
	return c, nil
}
