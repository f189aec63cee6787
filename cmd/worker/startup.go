// cmd/worker/startup.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/rs/zerolog/log"

	"familytree-backend/pkg/container"
)

// HealthChecker performs startup health checks
type HealthChecker struct {
	redisClient *redis.Client
	container   *container.Container
}

// startServices performs health checks and starts the health endpoint
func startServices(ctx context.Context, c *container.Container, cfg *Config) error {
	log.Info().Msg("============================================")
	log.Info().Msg("🚀 Family Tree Worker Starting...")
	log.Info().Msg("============================================")

	checker := &HealthChecker{
		redisClient: redis.NewClient(&redis.Options{
			Addr:     cfg.App.Redis.Host,
			Password: cfg.App.Redis.Password,
			DB:       cfg.App.Redis.DB,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		}),
		container: c,
	}
	defer checker.redisClient.Close()

	if err := checker.checkAll(ctx); err != nil {
		return err
	}

	go startHealthCheckServer(c, cfg.HealthPort)

	return nil
}

// checkAll runs all health checks
func (h *HealthChecker) checkAll(ctx context.Context) error {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"Redis Connection", h.checkRedis},
		{"PostgreSQL", h.checkDatabase},
		{"Photo Store", h.checkPhotoStore},
	}

	for _, check := range checks {
		log.Info().Msgf("⏳ Checking %s...", check.name)
		if err := check.fn(ctx); err != nil {
			log.Error().Err(err).Msgf("❌ %s", check.name)
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		log.Info().Msgf("✓ %s: OK", check.name)
	}

	return nil
}

func (h *HealthChecker) checkRedis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return h.redisClient.Ping(ctx).Err()
}

// checkDatabase opens the pool; the orphan sweep needs it.
func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return h.container.DB.HealthCheck(ctx)
}

// checkPhotoStore lists the store once to prove it is reachable.
func (h *HealthChecker) checkPhotoStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := h.container.Photos.List(ctx)
	return err
}

// startHealthCheckServer serves /health, /ready and /metrics
func startHealthCheckServer(c *container.Container, port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "UP", "service": "familytree-worker"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := c.DB.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "NOT_READY", "error": err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "READY"})
	})
	if c.Metrics != nil {
		mux.Handle("/metrics", c.Metrics.Handler())
	}

	log.Info().Str("port", port).Msg("[Health] Starting health check server")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error().Err(err).Msg("[Health] Failed to start")
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
