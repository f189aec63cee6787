package main

import (
	"github.com/hibiken/asynq"

	personJob "familytree-backend/internal/domains/person/job"
	"familytree-backend/internal/shared"
	"familytree-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	deletePhoto  *personJob.DeletePhotoHandler
	sweepOrphans *personJob.SweepOrphansHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container, cfg *Config) *HandlerRegistry {
	return &HandlerRegistry{
		deletePhoto:  personJob.NewDeletePhotoHandler(c.Photos),
		sweepOrphans: personJob.NewSweepOrphansHandler(c.OrphanSweeper, cfg.App.Jobs.OrphanSweepGrace),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Photo maintenance
	mux.HandleFunc(shared.TypeDeletePersonPhoto, h.deletePhoto.ProcessTask)
	mux.HandleFunc(shared.TypeSweepOrphanPhotos, h.sweepOrphans.ProcessTask)
}
