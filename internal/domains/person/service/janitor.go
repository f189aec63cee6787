package service

import (
	"context"
	"encoding/json"
	"time"

	"familytree-backend/internal/infrastructure/queue"
	"familytree-backend/internal/infrastructure/storage"
	"familytree-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// PhotoJanitor discards photo files that no record references any more.
// Failures are logged, never returned: the record change has already committed.
type PhotoJanitor interface {
	// Discard returns the number of discards attempted.
	Discard(ctx context.Context, names ...string) int
}

// InlineJanitor removes files directly through the photo store.
type InlineJanitor struct {
	store storage.PhotoStore
}

func NewInlineJanitor(store storage.PhotoStore) *InlineJanitor {
	return &InlineJanitor{store: store}
}

func (j *InlineJanitor) Discard(ctx context.Context, names ...string) int {
	// a client disconnect must not abort cleanup of an already committed delete
	ctx = context.WithoutCancel(ctx)

	attempted := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		attempted++
		j.remove(ctx, name)
	}
	return attempted
}

func (j *InlineJanitor) remove(ctx context.Context, name string) {
	if err := j.store.Remove(ctx, name); err != nil {
		log.Warn().Err(err).Str("photo", name).Msg("Failed to discard photo")
		return
	}
	log.Debug().Str("photo", name).Msg("Photo discarded")
}

// QueueJanitor hands removals to the worker. If a task cannot be enqueued the
// file is removed inline instead.
type QueueJanitor struct {
	client   queue.Enqueuer
	fallback *InlineJanitor
}

func NewQueueJanitor(client queue.Enqueuer, store storage.PhotoStore) *QueueJanitor {
	return &QueueJanitor{
		client:   client,
		fallback: NewInlineJanitor(store),
	}
}

// NewDeletePhotoTask builds the task consumed by the delete photo job.
func NewDeletePhotoTask(name string) (*asynq.Task, error) {
	payload, err := json.Marshal(shared.DeletePhotoPayload{Name: name})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(shared.TypeDeletePersonPhoto, payload), nil
}

func (j *QueueJanitor) Discard(ctx context.Context, names ...string) int {
	ctx = context.WithoutCancel(ctx)

	attempted := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		attempted++

		task, err := NewDeletePhotoTask(name)
		if err == nil {
			_, err = j.client.Enqueue(task,
				asynq.Queue(shared.QueueLow),
				asynq.MaxRetry(5),
				asynq.Timeout(time.Minute),
			)
		}
		if err != nil {
			log.Warn().Err(err).Str("photo", name).Msg("Failed to enqueue photo cleanup, removing inline")
			j.fallback.remove(ctx, name)
		}
	}
	return attempted
}
