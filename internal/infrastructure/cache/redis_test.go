package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := NewRedisCache(s.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })
	require.NoError(t, rc.Connect(context.Background()))
	return rc, s
}

func TestRedisCache_SetGetRoundTrip(t *testing.T) {
	rc, s := newTestCache(t)
	ctx := context.Background()

	var got entry
	hit, err := rc.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, rc.Set(ctx, "person:1", entry{Name: "Ana", Count: 2}, time.Minute))
	hit, err = rc.Get(ctx, "person:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, entry{Name: "Ana", Count: 2}, got)

	s.FastForward(2 * time.Minute)
	hit, err = rc.Get(ctx, "person:1", &got)
	require.NoError(t, err)
	assert.False(t, hit, "entry should expire with its TTL")
}

func TestRedisCache_GetCorruptValue(t *testing.T) {
	rc, s := newTestCache(t)
	require.NoError(t, s.Set("person:1", "{not json"))

	var got entry
	hit, err := rc.Get(context.Background(), "person:1", &got)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestRedisCache_Delete(t *testing.T) {
	rc, s := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, rc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, rc.Set(ctx, "b", 2, time.Minute))

	require.NoError(t, rc.Delete(ctx))
	require.NoError(t, rc.Delete(ctx, "a", "nosuch"))
	assert.False(t, s.Exists("a"))
	assert.True(t, s.Exists("b"))
}

func TestRedisCache_DeletePatternAcrossScanPages(t *testing.T) {
	rc, s := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("people:list:%03d", i), "{}"))
	}
	require.NoError(t, s.Set("person:keep", "{}"))

	require.NoError(t, rc.DeletePattern(ctx, "people:list:*"))
	assert.Equal(t, []string{"person:keep"}, s.Keys())

	// nothing left to match
	require.NoError(t, rc.DeletePattern(ctx, "people:list:*"))
}

func TestRedisCache_PingAndOutage(t *testing.T) {
	rc, s := newTestCache(t)
	require.NoError(t, rc.Ping(context.Background()))

	s.Close()
	assert.Error(t, rc.Ping(context.Background()))

	var got entry
	_, err := rc.Get(context.Background(), "k", &got)
	assert.Error(t, err)
}
