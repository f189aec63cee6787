package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the whole application configuration, populated from environment variables.
type Config struct {
	App     AppConfig
	Redis   RedisConfig
	Photo   PhotoConfig
	MinIO   MinIOConfig
	Jobs    JobConfig
	CORS    CORSConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Password string
	DB       int
}

// Photo store drivers and cleanup modes
const (
	PhotoDriverFilesystem = "fs"
	PhotoDriverMinIO      = "minio"

	CleanupModeInline = "inline"
	CleanupModeQueue  = "queue"
)

type PhotoConfig struct {
	Driver        string // fs | minio
	Dir           string // root directory for the fs driver
	MaxBytes      int64
	MaxPixels     int64 // width*height limit for uploads and thumbnails
	ThumbnailSize int
	CleanupMode   string // inline | queue
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // key prefix inside the bucket, e.g. "photos/"
	UseSSL    bool
}

// JobConfig configures the worker scheduler.
type JobConfig struct {
	OrphanSweepCron  string
	OrphanSweepGrace time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Family Tree API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Photo: PhotoConfig{
			Driver:        strings.ToLower(getEnv("PHOTO_DRIVER", PhotoDriverFilesystem)),
			Dir:           getEnv("PHOTO_DIR", "private/uploads/photos"),
			MaxBytes:      int64(getEnvInt("PHOTO_MAX_BYTES", 5*1024*1024)),
			MaxPixels:     int64(getEnvInt("PHOTO_MAX_PIXELS", 40_000_000)),
			ThumbnailSize: getEnvInt("PHOTO_THUMBNAIL_SIZE", 300),
			CleanupMode:   strings.ToLower(getEnv("PHOTO_CLEANUP_MODE", CleanupModeInline)),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "familytree"),
			Prefix:    getEnv("MINIO_PREFIX", "photos/"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Jobs: JobConfig{
			OrphanSweepCron:  getEnv("ORPHAN_SWEEP_CRON", "@every 6h"),
			OrphanSweepGrace: getEnvDuration("ORPHAN_SWEEP_GRACE", time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Metrics: MetricsConfig{
			Enabled:   getEnvBool("METRICS_ENABLED", true),
			Namespace: getEnv("METRICS_NAMESPACE", "familytree"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that cannot be defaulted silently.
func (c *Config) Validate() error {
	switch c.Photo.Driver {
	case PhotoDriverFilesystem, PhotoDriverMinIO:
	default:
		return fmt.Errorf("unknown PHOTO_DRIVER %q (expected fs or minio)", c.Photo.Driver)
	}

	switch c.Photo.CleanupMode {
	case CleanupModeInline, CleanupModeQueue:
	default:
		return fmt.Errorf("unknown PHOTO_CLEANUP_MODE %q (expected inline or queue)", c.Photo.CleanupMode)
	}

	if c.Photo.CleanupMode == CleanupModeQueue && !c.Redis.Enabled {
		return fmt.Errorf("PHOTO_CLEANUP_MODE=queue requires REDIS_ENABLED=true")
	}

	if c.Photo.Driver == PhotoDriverFilesystem && strings.TrimSpace(c.Photo.Dir) == "" {
		return fmt.Errorf("PHOTO_DIR must be set for the fs photo driver")
	}

	if c.Photo.MaxBytes <= 0 {
		return fmt.Errorf("PHOTO_MAX_BYTES must be positive")
	}

	if c.Photo.MaxPixels <= 0 {
		return fmt.Errorf("PHOTO_MAX_PIXELS must be positive")
	}

	if c.Photo.ThumbnailSize <= 0 {
		return fmt.Errorf("PHOTO_THUMBNAIL_SIZE must be positive")
	}

	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
