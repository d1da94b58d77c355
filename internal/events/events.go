// Package events carries the signals that drive the generation pipeline
// between stages. A Bus delivers each published event to every handler
// subscribed to its name.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/models"
)

const (
	DocumentUploaded    = "document.uploaded"
	ChaptersReady       = "course.chapters.ready"
	QuizRequested       = "chapter.quiz.requested"
	FlashcardsRequested = "chapter.flashcards.requested"
)

var (
	ErrClosed = errors.New("event bus closed")
	// ErrMalformed marks payloads that can never be handled. Transports
	// must not redeliver them.
	ErrMalformed = errors.New("malformed event payload")
)

// Handler receives the raw JSON payload of one event. A returned error asks
// the transport to redeliver, where the transport supports it.
type Handler func(ctx context.Context, payload []byte) error

type Bus interface {
	Publish(ctx context.Context, event string, payload any) error
	Subscribe(event string, h Handler)
}

// Subscribe registers a handler that receives the payload decoded as T.
func Subscribe[T any](bus Bus, event string, h func(ctx context.Context, payload T) error) {
	bus.Subscribe(event, func(ctx context.Context, raw []byte) error {
		var p T
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, errors.Join(ErrMalformed, err))
		}
		return h(ctx, p)
	})
}

type DocumentUploadedPayload struct {
	DocumentID uuid.UUID         `json:"documentId"`
	OwnerID    uuid.UUID         `json:"ownerId"`
	FileRef    models.FileRef    `json:"fileRef"`
	Difficulty models.Difficulty `json:"difficulty"`
	CourseID   uuid.UUID         `json:"courseId"`
}

type ChaptersReadyPayload struct {
	CourseID   uuid.UUID               `json:"courseId"`
	OwnerID    uuid.UUID               `json:"ownerId"`
	Chapters   []models.ChapterPayload `json:"chapters"`
	Difficulty models.Difficulty       `json:"difficulty"`
}

// ChapterAssessmentPayload is shared by the quiz and flashcard requests.
type ChapterAssessmentPayload struct {
	ChapterID      uuid.UUID         `json:"chapterId"`
	CourseID       uuid.UUID         `json:"courseId"`
	OwnerID        uuid.UUID         `json:"ownerId"`
	ChapterTitle   string            `json:"chapterTitle"`
	ChapterContent string            `json:"chapterContent"`
	Difficulty     models.Difficulty `json:"difficulty"`
}
