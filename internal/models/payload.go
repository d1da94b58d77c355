package models

// Generation payloads mirror the JSON shapes the LLM is asked to produce.
// Fields tagged required must be present for a response to be accepted.

type CoursePayload struct {
	Title              string           `json:"title" validate:"required"`
	Description        string           `json:"description" validate:"required"`
	Subject            string           `json:"subject"`
	Level              Difficulty       `json:"level"`
	Tags               []string         `json:"tags" validate:"required"`
	EstimatedDuration  string           `json:"estimatedDuration"`
	LearningObjectives []string         `json:"learningObjectives" validate:"required"`
	KeyConcepts        []string         `json:"keyConcepts" validate:"required"`
	Chapters           []ChapterPayload `json:"chapters" validate:"required,min=1,dive"`
}

type ChapterPayload struct {
	Title              string   `json:"title"`
	Content            string   `json:"content" validate:"required"`
	Description        string   `json:"description"`
	EstimatedDuration  string   `json:"estimatedDuration"`
	Order              int      `json:"order"`
	LearningObjectives []string `json:"learningObjectives,omitempty"`
	KeyConcepts        []string `json:"keyConcepts,omitempty"`
}

type QuizPayload struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description"`
	Difficulty   Difficulty `json:"difficulty"`
	TimeLimit    int        `json:"timeLimit"`
	PassingScore int        `json:"passingScore"`
	Questions    []Question `json:"questions" validate:"required,min=1,dive"`
}

type FlashcardsPayload struct {
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags,omitempty"`
	Flashcards  []Flashcard `json:"flashcards" validate:"required,min=1,dive"`
}
