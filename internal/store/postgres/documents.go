package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

const documentColumns = `id, owner_id, fingerprint, filename, mime_type, type, size_bytes, storage_key,
	source_url, processing_status, processing_error, created_at, updated_at`

type Documents struct {
	db *pgxpool.Pool
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.OwnerID, &d.Fingerprint, &d.Filename, &d.MimeType, &d.Type, &d.SizeBytes,
		&d.StorageKey, &d.SourceURL, &d.ProcessingStatus, &d.ProcessingError, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func documentWhere(q *query, f store.DocumentFilter) {
	if f.ID != nil {
		q.where("id", *f.ID)
	}
	if f.OwnerID != nil {
		q.where("owner_id", *f.OwnerID)
	}
	if f.Fingerprint != nil {
		q.where("fingerprint", *f.Fingerprint)
	}
}

func (r *Documents) Create(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents (id, owner_id, fingerprint, filename, mime_type, type, size_bytes, storage_key,
		 source_url, processing_status, processing_error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		d.ID, d.OwnerID, d.Fingerprint, d.Filename, d.MimeType, d.Type, d.SizeBytes, d.StorageKey,
		d.SourceURL, d.ProcessingStatus, d.ProcessingError,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapErr("insert document", err)
	}
	return nil
}

func (r *Documents) FindOne(ctx context.Context, f store.DocumentFilter) (*models.Document, error) {
	q := &query{}
	documentWhere(q, f)
	d, err := scanDocument(r.db.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents"+q.whereClause()+" LIMIT 1", q.args...))
	if err != nil {
		return nil, mapErr("find document", err)
	}
	return d, nil
}

func (r *Documents) FindOneOrNull(ctx context.Context, f store.DocumentFilter) (*models.Document, error) {
	d, err := r.FindOne(ctx, f)
	return store.OrNull(d, err)
}

func (r *Documents) Find(ctx context.Context, f store.DocumentFilter) ([]*models.Document, error) {
	q := &query{}
	documentWhere(q, f)
	rows, err := r.db.Query(ctx, "SELECT "+documentColumns+" FROM documents"+q.whereClause()+" ORDER BY created_at DESC", q.args...)
	if err != nil {
		return nil, mapErr("list documents", err)
	}
	docs, err := collect(rows, scanDocument)
	if err != nil {
		return nil, mapErr("scan documents", err)
	}
	return docs, nil
}

func (r *Documents) UpdateByFilter(ctx context.Context, f store.DocumentFilter, u store.DocumentUpdate) (*models.Document, error) {
	q := &query{}
	if u.ProcessingStatus != nil {
		q.set("processing_status", *u.ProcessingStatus)
	}
	switch {
	case u.ClearError:
		q.setNull("processing_error")
	case u.ProcessingError != nil:
		q.set("processing_error", *u.ProcessingError)
	}
	q.sets = append(q.sets, "updated_at = now()")
	documentWhere(q, f)

	d, err := scanDocument(r.db.QueryRow(ctx,
		"UPDATE documents SET "+q.setClause()+q.whereClause()+" RETURNING "+documentColumns, q.args...))
	if err != nil {
		return nil, mapErr("update document", err)
	}
	return d, nil
}
