package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"familytree-backend/internal/domains/person/model"
	"familytree-backend/internal/infrastructure/storage"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, p *model.Person) (*model.Person, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(*model.Person)
	return created, args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockRepository) GetByIDDirect(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Person, int64, error) {
	args := m.Called(ctx, filter)
	people, _ := args.Get(0).([]model.Person)
	return people, args.Get(1).(int64), args.Error(2)
}

// Update echoes the written person unless the expectation returns one.
func (m *mockRepository) Update(ctx context.Context, p *model.Person) (*model.Person, error) {
	args := m.Called(ctx, p)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if out, ok := args.Get(0).(*model.Person); ok {
		return out, nil
	}
	cp := *p
	return &cp, nil
}

// UpdateDetails echoes the written person unless the expectation returns one.
func (m *mockRepository) UpdateDetails(ctx context.Context, p *model.Person) (*model.Person, error) {
	args := m.Called(ctx, p)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if out, ok := args.Get(0).(*model.Person); ok {
		return out, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) SetPhoto(ctx context.Context, id uuid.UUID, photo *string) error {
	return m.Called(ctx, id, photo).Error(0)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Person)
	return p, args.Error(1)
}

func (m *mockRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]model.Person, error) {
	args := m.Called(ctx, ids)
	people, _ := args.Get(0).([]model.Person)
	return people, args.Error(1)
}

func (m *mockRepository) ListPhotoNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// recordingJanitor remembers every discarded name.
type recordingJanitor struct {
	mu    sync.Mutex
	names []string
}

func (j *recordingJanitor) Discard(_ context.Context, names ...string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, name := range names {
		if name != "" {
			j.names = append(j.names, name)
			n++
		}
	}
	return n
}

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	storage.PhotoStore
	failSave   bool
	failRemove map[string]bool
	removed    []string
}

var errDisk = errors.New("disk failure")

func (s *faultyStore) Save(ctx context.Context, name string, r io.Reader, ct string) (int64, error) {
	if s.failSave {
		return 0, errDisk
	}
	return s.PhotoStore.Save(ctx, name, r, ct)
}

func (s *faultyStore) Remove(ctx context.Context, name string) error {
	s.removed = append(s.removed, name)
	if s.failRemove[name] {
		return errDisk
	}
	return s.PhotoStore.Remove(ctx, name)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task.Type(), task.Payload())
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newFSStore(t *testing.T) *storage.FilesystemStore {
	t.Helper()
	store, err := storage.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func readStored(t *testing.T, store storage.PhotoStore, name string) []byte {
	t.Helper()
	rc, _, err := store.Open(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }
