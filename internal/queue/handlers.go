package queue

import (
	"log/slog"

	"github.com/hibiken/asynq"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func logEnqueued(info *asynq.TaskInfo) {
	if info == nil {
		return
	}
	slog.Debug("task enqueued", "type", info.Type, "id", info.ID, "queue", info.Queue)
}
