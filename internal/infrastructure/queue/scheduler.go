package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"familytree-backend/internal/config"
	"familytree-backend/internal/shared"
	"familytree-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisCfg config.RedisConfig, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		RedisOpt(redisCfg),
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

// RegisterPhotoJobs registers the periodic photo maintenance jobs.
func (s *Scheduler) RegisterPhotoJobs() error {
	return s.registerSweepOrphanPhotosJob()
}

// NewSweepOrphanPhotosTask builds the sweep task used by the cron entry and on-demand runs.
func NewSweepOrphanPhotosTask(grace time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(shared.SweepOrphanPhotosPayload{Grace: grace})
	if err != nil {
		return nil, fmt.Errorf("marshal sweep payload: %w", err)
	}
	return asynq.NewTask(shared.TypeSweepOrphanPhotos, payload), nil
}

// SweepTaskOptions are shared by the scheduled and on-demand sweep.
func SweepTaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(1),
		asynq.Timeout(10 * time.Minute),
	}
}

func (s *Scheduler) registerSweepOrphanPhotosJob() error {
	task, err := NewSweepOrphanPhotosTask(s.jobConfig.OrphanSweepGrace)
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(s.jobConfig.OrphanSweepCron, task, SweepTaskOptions()...)
	if err != nil {
		logger.Error("Failed to register SweepOrphanPhotos job", err)
		return fmt.Errorf("register orphan sweep %q: %w", s.jobConfig.OrphanSweepCron, err)
	}

	logger.Info("Registered SweepOrphanPhotos", map[string]interface{}{
		"cron":  s.jobConfig.OrphanSweepCron,
		"grace": s.jobConfig.OrphanSweepGrace.String(),
	})
	return nil
}

// Start runs the scheduler in the background. Stop it with Shutdown.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
