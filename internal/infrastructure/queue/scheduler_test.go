package queue

import (
	"encoding/json"
	"testing"
	"time"

	"familytree-backend/internal/config"
	"familytree-backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweepOrphanPhotosTask(t *testing.T) {
	task, err := NewSweepOrphanPhotosTask(90 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, shared.TypeSweepOrphanPhotos, task.Type())

	var p shared.SweepOrphanPhotosPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, 90*time.Minute, p.Grace)
}

func TestRedisOpt(t *testing.T) {
	opt := RedisOpt(config.RedisConfig{Host: "cache:6380", Password: "pw", DB: 3})
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 3, opt.DB)
}
