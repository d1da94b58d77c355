package queue

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/coursegen/internal/events"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues are the worker's queue priorities.
func Queues() map[string]int {
	return map[string]int{
		QueueCritical: 6,
		QueueDefault:  3,
		QueueLow:      1,
	}
}

// TaskOptions returns retry, timeout and queue settings for an event.
func TaskOptions(event string) []asynq.Option {
	switch event {
	case events.DocumentUploaded:
		return []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(10 * time.Minute), asynq.Queue(QueueCritical)}
	case events.ChaptersReady:
		return []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(2 * time.Minute), asynq.Queue(QueueDefault)}
	case events.QuizRequested, events.FlashcardsRequested:
		return []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(5 * time.Minute), asynq.Queue(QueueLow)}
	default:
		return []asynq.Option{asynq.MaxRetry(3), asynq.Queue(QueueDefault)}
	}
}
