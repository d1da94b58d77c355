package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	OwnerID          uuid.UUID        `json:"ownerId" db:"owner_id"`
	Fingerprint      string           `json:"fingerprint" db:"fingerprint"`
	Filename         string           `json:"filename" db:"filename"`
	MimeType         string           `json:"mimeType" db:"mime_type"`
	Type             string           `json:"type" db:"type"`
	SizeBytes        int64            `json:"sizeBytes" db:"size_bytes"`
	StorageKey       string           `json:"storageKey" db:"storage_key"`
	SourceURL        string           `json:"sourceUrl" db:"source_url"`
	ProcessingStatus ProcessingStatus `json:"processingStatus" db:"processing_status"`
	ProcessingError  *string          `json:"processingError,omitempty" db:"processing_error"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}

// FileRef points at an uploaded artifact in the blob store.
type FileRef struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
}

func (d *Document) FileRef() FileRef {
	return FileRef{
		Key:      d.StorageKey,
		URL:      d.SourceURL,
		MimeType: d.MimeType,
		Filename: d.Filename,
	}
}

const (
	DocTypePDF      = "pdf"
	DocTypeImage    = "image"
	DocTypeVideo    = "video"
	DocTypeAudio    = "audio"
	DocTypeText     = "text"
	DocTypeDocument = "document"
	DocTypeOther    = "other"
)

var officeMimeTypes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

// DocumentType classifies a mime type into a coarse document type.
func DocumentType(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "application/pdf":
		return DocTypePDF
	case strings.HasPrefix(mt, "image/"):
		return DocTypeImage
	case strings.HasPrefix(mt, "video/"):
		return DocTypeVideo
	case strings.HasPrefix(mt, "audio/"):
		return DocTypeAudio
	case strings.HasPrefix(mt, "text/"):
		return DocTypeText
	case officeMimeTypes[mt]:
		return DocTypeDocument
	default:
		return DocTypeOther
	}
}
