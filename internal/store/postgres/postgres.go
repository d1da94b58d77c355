// Package postgres implements the store repositories on pgx.
package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

const uniqueViolation = "23505"

func New(pool *pgxpool.Pool) *store.Store {
	return &store.Store{
		Documents:  &Documents{db: pool},
		Courses:    &Courses{db: pool},
		Chapters:   &Chapters{db: pool},
		Quizzes:    &Quizzes{db: pool},
		Flashcards: &Flashcards{db: pool},
	}
}

// query accumulates positional arguments while a statement is assembled.
type query struct {
	args  []any
	conds []string
	sets  []string
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) where(col string, v any) {
	q.conds = append(q.conds, col+" = "+q.arg(v))
}

func (q *query) set(col string, v any) {
	q.sets = append(q.sets, col+" = "+q.arg(v))
}

func (q *query) setNull(col string) {
	q.sets = append(q.sets, col+" = NULL")
}

func (q *query) whereClause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

func (q *query) setClause() string {
	return strings.Join(q.sets, ", ")
}

// mapErr translates driver errors into the store taxonomy.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, errors.Join(store.ErrDuplicate, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*T, error) {
		return scan(row)
	})
}
