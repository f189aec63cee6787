package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStore stores photos as plain files in a single directory.
type FilesystemStore struct {
	root string
}

var _ PhotoStore = (*FilesystemStore)(nil)

// NewFilesystemStore creates root if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("photo directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create photo directory: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) Driver() string { return DriverFilesystem }

// Root returns the directory holding the photos.
func (s *FilesystemStore) Root() string { return s.root }

func (s *FilesystemStore) pathFor(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, name), nil
}

// Save streams into a temp file in the same directory and renames it into place,
// so readers never observe a half-written photo.
func (s *FilesystemStore) Save(ctx context.Context, name string, r io.Reader, _ string) (int64, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write photo %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("sync photo %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close photo %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("move photo %s into place: %w", name, err)
	}

	return size, nil
}

func (s *FilesystemStore) Open(_ context.Context, name string) (io.ReadCloser, PhotoInfo, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, PhotoInfo{}, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, PhotoInfo{}, fmt.Errorf("%w: %s", ErrPhotoNotExist, name)
	}
	if err != nil {
		return nil, PhotoInfo{}, fmt.Errorf("open photo %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, PhotoInfo{}, fmt.Errorf("stat photo %s: %w", name, err)
	}

	return f, PhotoInfo{Name: name, Size: st.Size(), LastModified: st.ModTime()}, nil
}

func (s *FilesystemStore) Remove(_ context.Context, name string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove photo %s: %w", name, err)
	}
	return nil
}

func (s *FilesystemStore) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat photo %s: %w", name, err)
	}
	return true, nil
}

// List returns regular files in the root, sorted by name. Temp uploads are skipped.
func (s *FilesystemStore) List(_ context.Context) ([]PhotoInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	infos := make([]PhotoInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		infos = append(infos, PhotoInfo{Name: e.Name(), Size: fi.Size(), LastModified: fi.ModTime()})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
