package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"familytree-backend/internal/config"
	infraCache "familytree-backend/internal/infrastructure/cache"
	"familytree-backend/internal/infrastructure/database"
	"familytree-backend/internal/infrastructure/metrics"
	"familytree-backend/internal/infrastructure/queue"
	"familytree-backend/internal/infrastructure/storage"
	"familytree-backend/pkg/cache"

	personHandler "familytree-backend/internal/domains/person/handler"
	personRepo "familytree-backend/internal/domains/person/repository"
	personService "familytree-backend/internal/domains/person/service"
)

// Container holds every long-lived dependency of the API and the worker.
// Build order: config → database → cache → photo store → queue → repositories → services → handlers.
type Container struct {
	// ========================================
	// INFRASTRUCTURE
	// ========================================
	Config   *config.Config
	DB       *database.PostgresDB
	Cache    cache.Cache
	Redis    *infraCache.RedisCache // nil when REDIS_ENABLED=false
	Metrics  *metrics.Metrics       // nil when METRICS_ENABLED=false
	Photos   storage.PhotoStore
	Images   *storage.ImageProcessor
	AsynqCli *asynq.Client // nil when REDIS_ENABLED=false

	// ========================================
	// PERSON DOMAIN
	// ========================================
	PersonRepo    personRepo.RepositoryInterface
	PersonService personService.ServiceInterface
	PersonHandler *personHandler.Handler
	PhotoJanitor  personService.PhotoJanitor
	OrphanSweeper *personService.OrphanSweeper
}

// NewContainer builds the dependency graph. The database pool is opened lazily
// on first use, so a database outage does not prevent startup.
func NewContainer(ctx context.Context) (*Container, error) {
	log.Info().Msg("🔧 Initializing DI Container...")

	c := &Container{}

	// STEP 1: configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Info().Str("env", cfg.App.Environment).Msg("✅ Config loaded")

	// STEP 2: database
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	c.DB = database.NewPostgresDB(dbConfig)

	// STEP 3: metrics and cache
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New(cfg.Metrics.Namespace)
	}
	c.initCache(ctx)

	// STEP 4: photo store
	if err := c.initPhotoStore(ctx); err != nil {
		return nil, err
	}

	// STEP 5: queue client
	if cfg.Redis.Enabled {
		c.AsynqCli = queue.NewClient(cfg.Redis)
		log.Info().Msg("✅ Asynq client initialized")
	}

	// STEP 6: repositories, services, handlers
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Info().Msg("🎉 DI Container initialized successfully")
	return c, nil
}

// initCache falls back to a no-op cache when Redis is disabled or unreachable.
func (c *Container) initCache(ctx context.Context) {
	if !c.Config.Redis.Enabled {
		c.Cache = infraCache.NoopCache{}
		log.Info().Msg("Redis disabled, caching off")
		return
	}

	rc := infraCache.NewRedisCache(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	c.Redis = rc
	c.Cache = rc

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Connect(connectCtx); err != nil {
		// non-critical: every cache miss falls through to PostgreSQL
		log.Warn().Err(err).Msg("⚠️  Redis connection failed (non-critical)")
	}
}

func (c *Container) initPhotoStore(ctx context.Context) error {
	store, err := storage.New(ctx, c.Config)
	if err != nil {
		return fmt.Errorf("failed to init photo store: %w", err)
	}

	if c.Metrics != nil {
		store = storage.NewInstrumentedStore(store, c.Metrics)
	}
	c.Photos = store
	c.Images = storage.NewImageProcessor(c.Config.Photo.MaxBytes)
	c.Images.MaxPixels = c.Config.Photo.MaxPixels

	log.Info().Str("driver", store.Driver()).Msg("✅ Photo store ready")
	return nil
}

func (c *Container) initRepositories() {
	c.PersonRepo = personRepo.NewPostgresRepository(c.DB, c.Cache)
}

func (c *Container) initServices() {
	opts := personService.Options{
		ThumbnailSize: c.Config.Photo.ThumbnailSize,
		SweepGrace:    c.Config.Jobs.OrphanSweepGrace,
	}

	if c.Config.Photo.CleanupMode == config.CleanupModeQueue && c.AsynqCli != nil {
		c.PhotoJanitor = personService.NewQueueJanitor(c.AsynqCli, c.Photos)
	} else {
		c.PhotoJanitor = personService.NewInlineJanitor(c.Photos)
	}

	// a nil *asynq.Client must not become a non-nil interface
	if c.AsynqCli != nil {
		opts.Enqueuer = c.AsynqCli
	}

	c.PersonService = personService.NewPersonService(c.PersonRepo, c.Photos, c.Images, c.PhotoJanitor, opts)
	c.OrphanSweeper = personService.NewOrphanSweeper(c.PersonRepo, c.Photos)
}

func (c *Container) initHandlers() {
	c.PersonHandler = personHandler.NewHandler(c.PersonService, c.Config.Photo.MaxBytes)
}

// Cleanup releases pooled connections. Call it once on shutdown.
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up container resources...")

	if c.AsynqCli != nil {
		if err := c.AsynqCli.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close asynq client")
		}
	}

	if c.DB != nil {
		c.DB.Close()
		log.Info().Msg("✅ Database connections closed")
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close Redis")
		} else {
			log.Info().Msg("✅ Redis connections closed")
		}
	}

	log.Info().Msg("✅ Container cleanup completed")
}
