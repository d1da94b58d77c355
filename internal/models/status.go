package models

import "fmt"

// ProcessingStatus tracks an entity through the generation pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty accepts the canonical levels plus the easy/medium/hard aliases
// older clients send. An empty value maps to beginner.
func ParseDifficulty(s string) (Difficulty, error) {
	switch s {
	case "", "beginner", "easy":
		return DifficultyBeginner, nil
	case "intermediate", "medium":
		return DifficultyIntermediate, nil
	case "advanced", "hard":
		return DifficultyAdvanced, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}
