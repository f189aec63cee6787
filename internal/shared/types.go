package shared

import "time"

// Queues served by the worker, highest priority first.
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Task types
const (
	TypeDeletePersonPhoto = "person:delete_photo"
	TypeSweepOrphanPhotos = "person:sweep_orphan_photos"
)

// DeletePhotoPayload asks the worker to remove one stored photo.
type DeletePhotoPayload struct {
	Name     string `json:"name"`
	PersonID string `json:"person_id,omitempty"`
}

// SweepOrphanPhotosPayload configures one orphan sweep run.
type SweepOrphanPhotosPayload struct {
	// Files younger than Grace are kept even if unreferenced; an upload may still be in flight.
	Grace time.Duration `json:"grace"`
}
