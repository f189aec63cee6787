package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"familytree-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInlineJanitor_SkipsBlankAndSurvivesErrors(t *testing.T) {
	fs := newFSStore(t)
	store := &faultyStore{PhotoStore: fs, failRemove: map[string]bool{"b.png": true}}
	ctx := context.Background()
	for _, n := range []string{"a.png", "b.png"} {
		_, err := fs.Save(ctx, n, bytes.NewReader([]byte("x")), "")
		require.NoError(t, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	n := NewInlineJanitor(store).Discard(cancelled, "", "b.png", "a.png")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"b.png", "a.png"}, store.removed)

	ok, err := fs.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewDeletePhotoTask(t *testing.T) {
	task, err := NewDeletePhotoTask("x.jpg")
	require.NoError(t, err)
	assert.Equal(t, shared.TypeDeletePersonPhoto, task.Type())

	var p shared.DeletePhotoPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "x.jpg", p.Name)
}

func TestQueueJanitor_EnqueuesEachName(t *testing.T) {
	fs := newFSStore(t)
	store := &faultyStore{PhotoStore: fs, failRemove: map[string]bool{}}
	enq := &mockEnqueuer{}
	enq.On("Enqueue", shared.TypeDeletePersonPhoto, mock.Anything).Return(&asynq.TaskInfo{ID: "1"}, nil).Twice()

	n := NewQueueJanitor(enq, store).Discard(context.Background(), "a.png", "", "b.png")
	assert.Equal(t, 2, n)
	assert.Empty(t, store.removed)
	enq.AssertExpectations(t)
}

func TestQueueJanitor_FallsBackToInlineRemoval(t *testing.T) {
	fs := newFSStore(t)
	ctx := context.Background()
	_, err := fs.Save(ctx, "a.png", bytes.NewReader([]byte("x")), "")
	require.NoError(t, err)
	store := &faultyStore{PhotoStore: fs, failRemove: map[string]bool{}}

	enq := &mockEnqueuer{}
	enq.On("Enqueue", shared.TypeDeletePersonPhoto, mock.Anything).Return(nil, errors.New("redis down"))

	n := NewQueueJanitor(enq, store).Discard(ctx, "a.png")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a.png"}, store.removed)

	ok, err := fs.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.False(t, ok)
}
