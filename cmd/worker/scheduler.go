package main

import (
	"github.com/rs/zerolog/log"

	"familytree-backend/internal/infrastructure/queue"
)

// asynqScheduler wraps queue.Scheduler with additional functionality
type asynqScheduler struct {
	*queue.Scheduler
}

// setupScheduler creates, registers and starts the periodic jobs
func setupScheduler(cfg *Config) *asynqScheduler {
	scheduler := queue.NewScheduler(cfg.App.Redis, cfg.App.Jobs)

	if err := scheduler.RegisterPhotoJobs(); err != nil {
		log.Fatal().Err(err).Msg("[Scheduler] Failed to register")
	}

	log.Info().Msg("[Scheduler] Starting...")
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("[Scheduler] Failed")
	}

	return &asynqScheduler{Scheduler: scheduler}
}

// Shutdown gracefully shuts down the scheduler
func (s *asynqScheduler) Shutdown() {
	log.Info().Msg("[Scheduler] Shutting down...")
	s.Scheduler.Shutdown()
	log.Info().Msg("[Scheduler] ✓ Stopped")
}
