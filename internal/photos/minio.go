package photos

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/workpulse-hris/attendance-worker/internal/config"
)

// Store retrieves employee profile photos for device sync. The command
// builder degrades to a photo-less payload when retrieval fails, so
// implementations only need best-effort semantics.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// MinIOStore is the object-store backed photo store
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore creates a photo store from configuration. A blank
// endpoint disables photo sync entirely and returns (nil, nil).
func NewMinIOStore(cfg config.PhotoStoreConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

// Get retrieves a photo by object key
func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Ping checks object store connectivity
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
