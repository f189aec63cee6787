package main

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"familytree-backend/internal/config"
	"familytree-backend/internal/shared/utils"
)

// Config holds the worker-only settings on top of the shared application config.
type Config struct {
	App         *config.Config
	Concurrency int
	HealthPort  string
}

// loadConfig loads worker settings from environment variables
func loadConfig(app *config.Config) *Config {
	concurrency, err := strconv.Atoi(utils.GetEnvVariable("WORKER_CONCURRENCY", "10"))
	if err != nil || concurrency <= 0 {
		concurrency = 10
	}

	cfg := &Config{
		App:         app,
		Concurrency: concurrency,
		HealthPort:  utils.GetEnvVariable("WORKER_HEALTH_PORT", "9999"),
	}

	log.Info().
		Str("redis", app.Redis.Host).
		Int("concurrency", cfg.Concurrency).
		Str("photo_driver", app.Photo.Driver).
		Msg("[Config] Worker configuration loaded")

	return cfg
}
