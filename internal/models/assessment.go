package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultPassMark = 0.7

type Quiz struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	CourseID    uuid.UUID  `json:"courseId" db:"course_id"`
	ChapterID   uuid.UUID  `json:"chapterId" db:"chapter_id"`
	OwnerID     uuid.UUID  `json:"ownerId" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	PassMark    float64    `json:"passMark" db:"pass_mark"`
	TimeLimit   int        `json:"timeLimit,omitempty" db:"time_limit"`
	Questions   []Question `json:"questions" db:"questions"`
	IsPublished bool       `json:"isPublished" db:"is_published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

type Question struct {
	QuestionText  string           `json:"questionText" validate:"required"`
	QuestionType  string           `json:"questionType" validate:"required"`
	Points        int              `json:"points"`
	Options       []QuestionOption `json:"options,omitempty" validate:"dive"`
	CorrectAnswer string           `json:"correctAnswer,omitempty"`
	Explanation   string           `json:"explanation,omitempty"`
	Hints         []string         `json:"hints,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
}

type QuestionOption struct {
	Text        string `json:"text" validate:"required"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

type FlashcardDeck struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	CourseID    uuid.UUID   `json:"courseId" db:"course_id"`
	ChapterID   uuid.UUID   `json:"chapterId" db:"chapter_id"`
	OwnerID     uuid.UUID   `json:"ownerId" db:"owner_id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Difficulty  Difficulty  `json:"difficulty" db:"difficulty"`
	Tags        []string    `json:"tags" db:"tags"`
	Cards       []Flashcard `json:"cards" db:"cards"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

type Flashcard struct {
	Front      string   `json:"front" validate:"required"`
	Back       string   `json:"back" validate:"required"`
	Difficulty string   `json:"difficulty,omitempty"`
	Hints      []string `json:"hints,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}
