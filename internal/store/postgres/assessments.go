package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

const quizColumns = `id, course_id, chapter_id, owner_id, title, description, difficulty, pass_mark,
	time_limit, questions, is_published, published_at, created_at`

const deckColumns = `id, course_id, chapter_id, owner_id, title, description, difficulty, tags, cards, created_at`

func assessmentWhere(q *query, f store.AssessmentFilter) {
	if f.ID != nil {
		q.where("id", *f.ID)
	}
	if f.ChapterID != nil {
		q.where("chapter_id", *f.ChapterID)
	}
	if f.CourseID != nil {
		q.where("course_id", *f.CourseID)
	}
}

type Quizzes struct {
	db *pgxpool.Pool
}

func scanQuiz(row pgx.Row) (*models.Quiz, error) {
	var qz models.Quiz
	err := row.Scan(&qz.ID, &qz.CourseID, &qz.ChapterID, &qz.OwnerID, &qz.Title, &qz.Description,
		&qz.Difficulty, &qz.PassMark, &qz.TimeLimit, &qz.Questions, &qz.IsPublished, &qz.PublishedAt, &qz.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &qz, nil
}

func (r *Quizzes) Create(ctx context.Context, qz *models.Quiz) error {
	if qz.ID == uuid.Nil {
		qz.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO quizzes (id, course_id, chapter_id, owner_id, title, description, difficulty,
		 pass_mark, time_limit, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		qz.ID, qz.CourseID, qz.ChapterID, qz.OwnerID, qz.Title, qz.Description, qz.Difficulty,
		qz.PassMark, qz.TimeLimit, orEmpty(qz.Questions),
	).Scan(&qz.CreatedAt)
	if err != nil {
		return mapErr("insert quiz", err)
	}
	return nil
}

func (r *Quizzes) FindOne(ctx context.Context, f store.AssessmentFilter) (*models.Quiz, error) {
	q := &query{}
	assessmentWhere(q, f)
	qz, err := scanQuiz(r.db.QueryRow(ctx, "SELECT "+quizColumns+" FROM quizzes"+q.whereClause()+" LIMIT 1", q.args...))
	if err != nil {
		return nil, mapErr("find quiz", err)
	}
	return qz, nil
}

func (r *Quizzes) FindOneOrNull(ctx context.Context, f store.AssessmentFilter) (*models.Quiz, error) {
	qz, err := r.FindOne(ctx, f)
	return store.OrNull(qz, err)
}

func (r *Quizzes) Find(ctx context.Context, f store.AssessmentFilter) ([]*models.Quiz, error) {
	q := &query{}
	assessmentWhere(q, f)
	rows, err := r.db.Query(ctx, "SELECT "+quizColumns+" FROM quizzes"+q.whereClause()+" ORDER BY created_at", q.args...)
	if err != nil {
		return nil, mapErr("list quizzes", err)
	}
	out, err := collect(rows, scanQuiz)
	if err != nil {
		return nil, mapErr("scan quizzes", err)
	}
	return out, nil
}

func (r *Quizzes) Publish(ctx context.Context, id uuid.UUID, at time.Time) (*models.Quiz, error) {
	qz, err := scanQuiz(r.db.QueryRow(ctx,
		`UPDATE quizzes SET is_published = true, published_at = COALESCE(published_at, $2)
		 WHERE id = $1 RETURNING `+quizColumns,
		id, at,
	))
	if err != nil {
		return nil, mapErr("publish quiz", err)
	}
	return qz, nil
}

type Flashcards struct {
	db *pgxpool.Pool
}

func scanDeck(row pgx.Row) (*models.FlashcardDeck, error) {
	var d models.FlashcardDeck
	err := row.Scan(&d.ID, &d.CourseID, &d.ChapterID, &d.OwnerID, &d.Title, &d.Description,
		&d.Difficulty, &d.Tags, &d.Cards, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Flashcards) Create(ctx context.Context, d *models.FlashcardDeck) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO flashcard_decks (id, course_id, chapter_id, owner_id, title, description, difficulty, tags, cards)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		d.ID, d.CourseID, d.ChapterID, d.OwnerID, d.Title, d.Description, d.Difficulty,
		orEmpty(d.Tags), orEmpty(d.Cards),
	).Scan(&d.CreatedAt)
	if err != nil {
		return mapErr("insert flashcard deck", err)
	}
	return nil
}

func (r *Flashcards) FindOne(ctx context.Context, f store.AssessmentFilter) (*models.FlashcardDeck, error) {
	q := &query{}
	assessmentWhere(q, f)
	d, err := scanDeck(r.db.QueryRow(ctx, "SELECT "+deckColumns+" FROM flashcard_decks"+q.whereClause()+" LIMIT 1", q.args...))
	if err != nil {
		return nil, mapErr("find flashcard deck", err)
	}
	return d, nil
}

func (r *Flashcards) FindOneOrNull(ctx context.Context, f store.AssessmentFilter) (*models.FlashcardDeck, error) {
	d, err := r.FindOne(ctx, f)
	return store.OrNull(d, err)
}

func (r *Flashcards) Find(ctx context.Context, f store.AssessmentFilter) ([]*models.FlashcardDeck, error) {
	q := &query{}
	assessmentWhere(q, f)
	rows, err := r.db.Query(ctx, "SELECT "+deckColumns+" FROM flashcard_decks"+q.whereClause()+" ORDER BY created_at", q.args...)
	if err != nil {
		return nil, mapErr("list flashcard decks", err)
	}
	out, err := collect(rows, scanDeck)
	if err != nil {
		return nil, mapErr("scan flashcard decks", err)
	}
	return out, nil
}
