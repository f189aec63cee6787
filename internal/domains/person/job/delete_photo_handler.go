package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"familytree-backend/internal/infrastructure/storage"
	"familytree-backend/internal/shared"
)

// DeletePhotoHandler removes one photo file discarded by the API.
type DeletePhotoHandler struct {
	store storage.PhotoStore
}

func NewDeletePhotoHandler(store storage.PhotoStore) *DeletePhotoHandler {
	return &DeletePhotoHandler{store: store}
}

// ProcessTask removes the file. A missing file counts as done.
func (h *DeletePhotoHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.DeletePhotoPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal DeletePhoto payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := storage.ValidateName(payload.Name); err != nil {
		log.Error().Err(err).Str("photo", payload.Name).Msg("Refusing to delete photo with invalid name")
		return fmt.Errorf("photo %q: %v: %w", payload.Name, err, asynq.SkipRetry)
	}

	if err := h.store.Remove(ctx, payload.Name); err != nil {
		log.Error().
			Err(err).
			Str("photo", payload.Name).
			Msg("Failed to delete photo")
		return fmt.Errorf("delete photo: %w", err)
	}

	log.Info().
		Str("photo", payload.Name).
		Str("person_id", payload.PersonID).
		Msg("Photo deleted")

	return nil
}
