package service

import (
	"context"
	"fmt"
	"time"

	"familytree-backend/internal/domains/person/model"
	"familytree-backend/internal/domains/person/repository"
	"familytree-backend/internal/infrastructure/storage"

	"github.com/rs/zerolog/log"
)

// OrphanSweeper removes stored photos that no record references.
type OrphanSweeper struct {
	repo  repository.RepositoryInterface
	store storage.PhotoStore
	now   func() time.Time
}

func NewOrphanSweeper(repo repository.RepositoryInterface, store storage.PhotoStore) *OrphanSweeper {
	return &OrphanSweeper{repo: repo, store: store, now: time.Now}
}

// Sweep keeps files modified within grace: their record update may still be in flight.
func (s *OrphanSweeper) Sweep(ctx context.Context, grace time.Duration) (model.SweepResult, error) {
	var result model.SweepResult

	files, err := s.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list photo store: %w", err)
	}

	names, err := s.repo.ListPhotoNames(ctx)
	if err != nil {
		return result, fmt.Errorf("list referenced photos: %w", err)
	}
	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	cutoff := s.now().Add(-grace)
	for _, f := range files {
		result.Scanned++

		if _, ok := referenced[f.Name]; ok || f.LastModified.After(cutoff) {
			result.Kept++
			continue
		}

		if err := s.store.Remove(ctx, f.Name); err != nil {
			result.Failed++
			log.Warn().Err(err).Str("photo", f.Name).Msg("Failed to remove orphan photo")
			continue
		}
		result.Removed++
		log.Info().Str("photo", f.Name).Time("last_modified", f.LastModified).Msg("Orphan photo removed")
	}

	return result, nil
}
