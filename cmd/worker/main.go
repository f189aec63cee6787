// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"familytree-backend/internal/shared/utils"
	"familytree-backend/pkg/container"
	"familytree-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init(utils.GetEnvVariable("APP_ENV", "development"), utils.GetEnvVariable("LOG_LEVEL", "info"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize container
	c, err := container.NewContainer(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("[Container] Failed to initialize")
	}
	defer c.Cleanup()

	if !c.Config.Redis.Enabled {
		log.Fatal().Msg("[Worker] REDIS_ENABLED=false: the worker needs Redis for its queues")
	}

	// Load configuration
	cfg := loadConfig(c.Config)

	// Health checks first so a broken Redis fails fast
	if err := startServices(ctx, c, cfg); err != nil {
		log.Fatal().Err(err).Msg("[Startup] Health check failed")
	}

	handlers := initializeHandlers(c, cfg)
	srv := setupAsynqServer(cfg, handlers)
	scheduler := setupScheduler(cfg)

	// Wait for shutdown signal
	waitForShutdown(srv, scheduler)
}

func waitForShutdown(srv *asynqServer, scheduler *asynqScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("[Shutdown] Gracefully stopping...")
	scheduler.Shutdown()
	srv.Shutdown()
	log.Info().Msg("[Shutdown] ✓ Stopped")
}
