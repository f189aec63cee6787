package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"familytree-backend/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore keeps photos as objects under a key prefix in one bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ PhotoStore = (*MinIOStore)(nil)

// NewMinIOStore creates the client and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (s *MinIOStore) Driver() string { return DriverMinIO }

func (s *MinIOStore) key(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return s.prefix + name, nil
}

// Save uploads the object. PutObject replaces an existing key atomically.
func (s *MinIOStore) Save(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	key, err := s.key(name)
	if err != nil {
		return 0, err
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s to minio: %w", name, err)
	}
	return info.Size, nil
}

func (s *MinIOStore) Open(ctx context.Context, name string) (io.ReadCloser, PhotoInfo, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, PhotoInfo{}, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, PhotoInfo{}, fmt.Errorf("failed to get object %s: %w", name, err)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, PhotoInfo{}, fmt.Errorf("%w: %s", ErrPhotoNotExist, name)
		}
		return nil, PhotoInfo{}, fmt.Errorf("failed to stat object %s: %w", name, err)
	}

	return obj, PhotoInfo{Name: name, Size: st.Size, LastModified: st.LastModified}, nil
}

// Remove deletes the object. S3 semantics already treat a missing key as success.
func (s *MinIOStore) Remove(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

func (s *MinIOStore) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", name, err)
	}
	return true, nil
}

func (s *MinIOStore) List(ctx context.Context) ([]PhotoInfo, error) {
	objectsCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: false,
	})

	var infos []PhotoInfo
	for object := range objectsCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		infos = append(infos, PhotoInfo{
			Name:         path.Base(object.Key),
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
