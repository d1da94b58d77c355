package models

import (
	"time"

	"github.com/google/uuid"
)

type Chapter struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	CourseID           uuid.UUID `json:"courseId" db:"course_id"`
	Title              string    `json:"title" db:"title"`
	Description        string    `json:"description" db:"description"`
	Content            string    `json:"content" db:"content"`
	Order              int       `json:"order" db:"position"`
	EstimatedDuration  string    `json:"estimatedDuration" db:"estimated_duration"`
	LearningObjectives []string  `json:"learningObjectives" db:"learning_objectives"`
	KeyConcepts        []string  `json:"keyConcepts" db:"key_concepts"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
}
