// internal/common/storage/minio.go
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Norbert250/ORION-2-sub000/internal/common/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the interface the persistence gateway depends on.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error
	EnsureBuckets(ctx context.Context) error
}

// MinioStore stores application documents in role-namespaced buckets.
type MinioStore struct {
	client  *minio.Client
	buckets config.BucketConfig
}

func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStore{
		client:  client,
		buckets: cfg.Buckets,
	}, nil
}

// EnsureBuckets creates every document-role bucket that doesn't exist yet.
func (s *MinioStore) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{
		s.buckets.AssetPhotos,
		s.buckets.BankStatements,
		s.buckets.MpesaDocuments,
		s.buckets.IDDocuments,
	} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// Upload uploads one document into the given bucket.
func (s *MinioStore) Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// Buckets returns the configured bucket names by document role.
func (s *MinioStore) Buckets() config.BucketConfig {
	return s.buckets
}
