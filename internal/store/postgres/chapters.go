package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

const chapterColumns = `id, course_id, title, description, content, position, estimated_duration,
	learning_objectives, key_concepts, created_at`

type Chapters struct {
	db *pgxpool.Pool
}

func scanChapter(row pgx.Row) (*models.Chapter, error) {
	var c models.Chapter
	err := row.Scan(&c.ID, &c.CourseID, &c.Title, &c.Description, &c.Content, &c.Order,
		&c.EstimatedDuration, &c.LearningObjectives, &c.KeyConcepts, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func chapterWhere(q *query, f store.ChapterFilter) {
	if f.ID != nil {
		q.where("id", *f.ID)
	}
	if f.CourseID != nil {
		q.where("course_id", *f.CourseID)
	}
	if f.Order != nil {
		q.where("position", *f.Order)
	}
}

func (r *Chapters) Create(ctx context.Context, c *models.Chapter) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO chapters (id, course_id, title, description, content, position, estimated_duration,
		 learning_objectives, key_concepts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		c.ID, c.CourseID, c.Title, c.Description, c.Content, c.Order, c.EstimatedDuration,
		orEmpty(c.LearningObjectives), orEmpty(c.KeyConcepts),
	).Scan(&c.CreatedAt)
	if err != nil {
		return mapErr("insert chapter", err)
	}
	return nil
}

func (r *Chapters) FindOne(ctx context.Context, f store.ChapterFilter) (*models.Chapter, error) {
	q := &query{}
	chapterWhere(q, f)
	c, err := scanChapter(r.db.QueryRow(ctx, "SELECT "+chapterColumns+" FROM chapters"+q.whereClause()+" LIMIT 1", q.args...))
	if err != nil {
		return nil, mapErr("find chapter", err)
	}
	return c, nil
}

func (r *Chapters) FindOneOrNull(ctx context.Context, f store.ChapterFilter) (*models.Chapter, error) {
	c, err := r.FindOne(ctx, f)
	return store.OrNull(c, err)
}

func (r *Chapters) Find(ctx context.Context, f store.ChapterFilter) ([]*models.Chapter, error) {
	q := &query{}
	chapterWhere(q, f)
	rows, err := r.db.Query(ctx, "SELECT "+chapterColumns+" FROM chapters"+q.whereClause()+" ORDER BY course_id, position", q.args...)
	if err != nil {
		return nil, mapErr("list chapters", err)
	}
	chapters, err := collect(rows, scanChapter)
	if err != nil {
		return nil, mapErr("scan chapters", err)
	}
	return chapters, nil
}
