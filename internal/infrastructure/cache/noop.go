package cache

import (
	"context"
	"time"

	"familytree-backend/pkg/cache"
)

// NoopCache always misses. Used when REDIS_ENABLED=false and in tests.
type NoopCache struct{}

var _ cache.Cache = NoopCache{}

func (NoopCache) Get(context.Context, string, interface{}) (bool, error)        { return false, nil }
func (NoopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error                       { return nil }
func (NoopCache) DeletePattern(context.Context, string) error                   { return nil }
func (NoopCache) Ping(context.Context) error                                    { return nil }
