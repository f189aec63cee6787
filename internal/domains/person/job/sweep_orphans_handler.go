package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"familytree-backend/internal/domains/person/model"
	"familytree-backend/internal/shared"
)

// Sweeper is implemented by service.OrphanSweeper.
type Sweeper interface {
	Sweep(ctx context.Context, grace time.Duration) (model.SweepResult, error)
}

// SweepOrphansHandler runs the orphan photo sweep, scheduled or on demand.
type SweepOrphansHandler struct {
	sweeper      Sweeper
	defaultGrace time.Duration
}

func NewSweepOrphansHandler(sweeper Sweeper, defaultGrace time.Duration) *SweepOrphansHandler {
	return &SweepOrphansHandler{
		sweeper:      sweeper,
		defaultGrace: defaultGrace,
	}
}

func (h *SweepOrphansHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.SweepOrphanPhotosPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// fall back to the configured grace
			log.Warn().Err(err).Msg("Failed to unmarshal SweepOrphanPhotos payload, using default grace")
		}
	}

	grace := payload.Grace
	if grace <= 0 {
		grace = h.defaultGrace
	}

	log.Info().Dur("grace", grace).Msg("Starting orphan photo sweep")
	start := time.Now()

	result, err := h.sweeper.Sweep(ctx, grace)
	if err != nil {
		return fmt.Errorf("sweep orphan photos: %w", err)
	}

	log.Info().
		Int("scanned", result.Scanned).
		Int("removed", result.Removed).
		Int("kept", result.Kept).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Orphan photo sweep completed")

	return nil
}
