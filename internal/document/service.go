package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/cache"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/storage"
	"github.com/nikhilbhutani/coursegen/internal/store"
)

type Service struct {
	docs    store.DocumentRepository
	storage storage.Storage
	cache   *cache.Entity[*models.Document]
}

func NewService(docs store.DocumentRepository, blobs storage.Storage, c cache.Store, ttl time.Duration) *Service {
	return &Service{
		docs:    docs,
		storage: blobs,
		cache:   cache.NewEntity[*models.Document](c, ttl),
	}
}

type IngestRequest struct {
	OwnerID  uuid.UUID
	Filename string
	MimeType string
	Data     []byte
}

// Ingest returns the owner's document for the given bytes, uploading and
// recording it only when no document with the same fingerprint exists. The
// boolean reports whether a new document was created.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*models.Document, bool, error) {
	fp := Fingerprint(req.Data)

	existing, err := s.Resolve(ctx, req.OwnerID, fp)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	key := BlobKey(req.OwnerID, fp, req.Filename)
	blob, err := s.storage.Upload(ctx, key, bytes.NewReader(req.Data), int64(len(req.Data)), req.MimeType)
	if err != nil {
		return nil, false, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &models.Document{
		OwnerID:          req.OwnerID,
		Fingerprint:      fp,
		Filename:         req.Filename,
		MimeType:         req.MimeType,
		Type:             models.DocumentType(req.MimeType),
		SizeBytes:        int64(len(req.Data)),
		StorageKey:       blob.Key,
		SourceURL:        blob.URL,
		ProcessingStatus: models.StatusPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, false, fmt.Errorf("create document: %w", err)
		}
		// A concurrent upload of the same bytes won the insert.
		winner, findErr := s.docs.FindOne(ctx, store.DocumentFilter{OwnerID: &req.OwnerID, Fingerprint: &fp})
		if findErr != nil {
			return nil, false, fmt.Errorf("resolve duplicate document: %w", findErr)
		}
		return winner, false, nil
	}

	s.cache.Put(ctx, cache.DocumentKey(doc.ID), doc)
	slog.Info("document ingested", "document_id", doc.ID, "owner_id", doc.OwnerID, "size", doc.SizeBytes, "type", doc.Type)
	return doc, true, nil
}

// Resolve looks up an owner's document by fingerprint, bypassing the cache.
// It returns nil when there is none.
func (s *Service) Resolve(ctx context.Context, owner uuid.UUID, fingerprint string) (*models.Document, error) {
	doc, err := s.docs.FindOneOrNull(ctx, store.DocumentFilter{OwnerID: &owner, Fingerprint: &fingerprint})
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}
	return doc, nil
}

func (s *Service) GetByID(ctx context.Context, owner, id uuid.UUID) (*models.Document, error) {
	doc, err := s.cache.Get(ctx, cache.DocumentKey(id), func(ctx context.Context) (*models.Document, error) {
		return s.docs.FindOne(ctx, store.DocumentFilter{ID: &id})
	})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc.OwnerID != owner {
		return nil, fmt.Errorf("get document: %w", store.ErrNotFound)
	}
	return doc, nil
}

// MarkStatus moves a document to status. A non-empty reason is recorded as
// the processing error; any other transition clears it.
func (s *Service) MarkStatus(ctx context.Context, id uuid.UUID, status models.ProcessingStatus, reason string) (*models.Document, error) {
	u := store.DocumentUpdate{ProcessingStatus: &status}
	if reason != "" {
		u.ProcessingError = &reason
	} else {
		u.ClearError = true
	}

	doc, err := s.docs.UpdateByFilter(ctx, store.DocumentFilter{ID: &id}, u)
	if err != nil {
		return nil, fmt.Errorf("update document status: %w", err)
	}
	s.cache.Invalidate(ctx, cache.DocumentKey(id))
	return doc, nil
}
