package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Drivers
const (
	DriverFilesystem = "fs"
	DriverMinIO      = "minio"
)

var (
	// ErrPhotoNotExist is returned by Open when no file is stored under the name.
	ErrPhotoNotExist = errors.New("photo file does not exist")
	// ErrInvalidPhotoName rejects names that could escape the store root.
	ErrInvalidPhotoName = errors.New("invalid photo name")
)

// PhotoInfo describes a stored photo.
type PhotoInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// PhotoStore keeps one image per person, addressed by a flat file name.
type PhotoStore interface {
	// Save writes (or replaces) name with the content of r and returns the byte count.
	Save(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)
	// Open returns a reader over name. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, PhotoInfo, error)
	// Remove deletes name. Removing a missing file is not an error.
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]PhotoInfo, error)
	Driver() string
}

// ValidateName accepts flat names only: no separators, no "..", no hidden files.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPhotoName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidPhotoName, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidPhotoName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidPhotoName, name)
	}
	return nil
}
