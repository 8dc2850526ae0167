package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// minioAPI is the slice of the MinIO client this store uses; tests swap in
// a fake.
type minioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader *bytes.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStore uploads to an S3-compatible bucket and returns the canonical
// object URL.
type MinioStore struct {
	client   *minio.Client
	api      minioAPI
	bucket   string
	endpoint string
	logger   *zap.Logger
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", endpoint, err)
	}

	err = client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, existsErr := client.BucketExists(context.Background(), bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("make/verify bucket %s: %w", bucket, err)
		}
	}

	return &MinioStore{
		client:   client,
		bucket:   bucket,
		endpoint: client.EndpointURL().String(),
		logger:   logger,
	}, nil
}

func (m *MinioStore) put(ctx context.Context, objectKey string, data []byte, contentType string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if m.api != nil {
		return m.api.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data), int64(len(data)), opts)
	}
	return m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data), int64(len(data)), opts)
}

func (m *MinioStore) Store(ctx context.Context, originalName string, data []byte) (*StoredFile, error) {
	objectKey := fmt.Sprintf("listings/%s%s", uuid.NewString(), filepath.Ext(originalName))

	info, err := m.put(ctx, objectKey, data, http.DetectContentType(data))
	if err != nil {
		return nil, fmt.Errorf("upload object %s to bucket %s: %w", objectKey, m.bucket, err)
	}

	m.logger.Info("stored upload in object storage",
		zap.String("bucket", m.bucket),
		zap.String("key", info.Key),
		zap.Int64("size", info.Size))

	return &StoredFile{
		URL:      fmt.Sprintf("%s/%s/%s", m.endpoint, m.bucket, objectKey),
		Filename: objectKey,
	}, nil
}
