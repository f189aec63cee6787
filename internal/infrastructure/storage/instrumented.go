package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// OpRecorder receives one observation per photo store call.
type OpRecorder interface {
	RecordPhotoOp(driver, op string, err error, duration time.Duration)
}

// InstrumentedStore reports every call on the wrapped store to an OpRecorder.
type InstrumentedStore struct {
	inner PhotoStore
	rec   OpRecorder
}

var _ PhotoStore = (*InstrumentedStore)(nil)

func NewInstrumentedStore(inner PhotoStore, rec OpRecorder) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, rec: rec}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	// a missing photo is an answer, not a failure
	if errors.Is(err, ErrPhotoNotExist) {
		err = nil
	}
	s.rec.RecordPhotoOp(s.inner.Driver(), op, err, time.Since(start))
}

func (s *InstrumentedStore) Driver() string { return s.inner.Driver() }

func (s *InstrumentedStore) Save(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	start := time.Now()
	n, err := s.inner.Save(ctx, name, r, contentType)
	s.observe("save", start, err)
	return n, err
}

func (s *InstrumentedStore) Open(ctx context.Context, name string) (io.ReadCloser, PhotoInfo, error) {
	start := time.Now()
	rc, info, err := s.inner.Open(ctx, name)
	s.observe("open", start, err)
	return rc, info, err
}

func (s *InstrumentedStore) Remove(ctx context.Context, name string) error {
	start := time.Now()
	err := s.inner.Remove(ctx, name)
	s.observe("remove", start, err)
	return err
}

func (s *InstrumentedStore) Exists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := s.inner.Exists(ctx, name)
	s.observe("exists", start, err)
	return ok, err
}

func (s *InstrumentedStore) List(ctx context.Context) ([]PhotoInfo, error) {
	start := time.Now()
	infos, err := s.inner.List(ctx)
	s.observe("list", start, err)
	return infos, err
}
