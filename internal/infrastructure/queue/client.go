package queue

import (
	"familytree-backend/internal/config"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the services depend on.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)

// RedisOpt converts the redis config into asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewClient returns an asynq client. The caller closes it.
func NewClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}
