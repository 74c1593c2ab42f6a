package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"vibecast/config"
	"vibecast/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// fetchChunkSize bounds peak memory pressure per read call when pulling a
// payload into memory.
const fetchChunkSize = 1 << 20 // 1 MiB

// ObjectStore is the handle to the MinIO-backed payload store. One instance
// is constructed at startup and shared for the process lifetime.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore connects to MinIO and ensures the configured bucket exists.
func NewObjectStore(cfg *config.Config) (*ObjectStore, error) {
	logger.Info("Connecting to object storage",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &ObjectStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Bucket returns the configured bucket name.
func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// Put uploads an object.
func (s *ObjectStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// Get returns a streaming reader for an object. The caller must close it.
func (s *ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return obj, nil
}

// FetchAll pulls an object into memory in fixed-size chunks and returns a
// seekable reader positioned at the start. Only the final reassembled buffer
// is held in memory; the network read itself is streamed.
func (s *ObjectStore) FetchAll(ctx context.Context, key string) (*bytes.Reader, error) {
	obj, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	chunk := make([]byte, fetchChunkSize)
	for {
		n, err := obj.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read object %s: %w", key, err)
		}
	}

	return bytes.NewReader(buf.Bytes()), nil
}

// List returns the object keys under a prefix.
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// DownloadToFile copies an object to a local path.
func (s *ObjectStore) DownloadToFile(ctx context.Context, key, path string) error {
	if err := s.client.FGetObject(ctx, s.bucket, key, path, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download object %s to %s: %w", key, path, err)
	}
	return nil
}
