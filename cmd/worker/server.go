package main

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"familytree-backend/internal/infrastructure/queue"
	"familytree-backend/internal/shared"
)

// asynqServer wraps asynq.Server with additional functionality
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer creates, configures and starts the Asynq server
func setupAsynqServer(cfg *Config, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.App.Redis),
		asynq.Config{
			Queues: map[string]int{
				shared.QueueHigh:    6,
				shared.QueueDefault: 3,
				shared.QueueLow:     1,
			},
			Concurrency: cfg.Concurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				log.Error().
					Err(err).
					Str("type", task.Type()).
					Int("retry", retried).
					Int("max_retry", maxRetry).
					Msg("[Asynq] ❌ Task failed")
			}),
		},
	)

	log.Info().Msg("[Worker] Starting...")
	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("[Worker] Failed")
	}

	return &asynqServer{Server: srv}
}

// Shutdown waits for in-flight tasks (bounded by asynq's ShutdownTimeout, default 8s).
func (s *asynqServer) Shutdown() {
	log.Info().Msg("[Worker] Shutting down...")
	s.Server.Shutdown()
	log.Info().Msg("[Worker] ✓ Gracefully stopped")
}
