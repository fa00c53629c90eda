// Package objstore stores ticket attachments in an S3-compatible bucket.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store wraps a single bucket of ticket uploads.
type Store struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// New connects to the object-storage endpoint and ensures the bucket
// exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}
	return &Store{client: client, bucket: bucket, now: time.Now}, nil
}

// BuildKey constructs the object key for an uploaded ticket image. The
// unix-timestamp prefix keeps same-named files apart.
func BuildKey(now time.Time, filename string) string {
	return fmt.Sprintf("tickets/%d-%s", now.Unix(), filename)
}

// Put uploads content under a timestamped ticket key and returns the
// key the object was stored at.
func (s *Store) Put(ctx context.Context, filename, contentType string, content []byte) (string, error) {
	key := BuildKey(s.now(), filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put %q: %w", key, err)
	}
	return key, nil
}

// URL returns the public URL for a stored object.
func (s *Store) URL(key string) string {
	return s.client.EndpointURL().JoinPath(s.bucket, key).String()
}
