package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/coursegen/internal/app"
	"github.com/nikhilbhutani/coursegen/internal/config"
	"github.com/nikhilbhutani/coursegen/internal/queue"
)

const concurrency = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.Pipeline.EventBus != "asynq" {
		slog.Error("worker requires EVENT_BUS=asynq", "event_bus", cfg.Pipeline.EventBus)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	bus, ok := a.Bus.(*queue.Bus)
	if !ok {
		slog.Error("unexpected event bus", "type", fmt.Sprintf("%T", a.Bus))
		os.Exit(1)
	}
	a.RegisterHandlers()

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queue.Queues(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Run blocks until SIGINT or SIGTERM and then drains active tasks.
	slog.Info("starting worker", "concurrency", concurrency, "queues", queue.Queues())
	if err := srv.Run(bus.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
