// Package attach stores suggestion attachment blobs in S3-compatible object
// storage. Metadata rows live in Postgres; only the bytes go here.
package attach

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Service wraps a MinIO client bound to a single bucket.
type Service struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and ensures the bucket exists.
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	s := &Service{client: client, bucket: bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		log.Printf("attach: created bucket %s", bucket)
	}

	return s, nil
}

// Put streams an attachment body into the bucket under the given object key.
func (s *Service) Put(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return nil
}

// PresignedGet returns a time-limited download URL for an object. The
// response forces a download with the original filename.
func (s *Service) PresignedGet(ctx context.Context, objectKey, fileName string, expiry time.Duration) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// Remove deletes an object from the bucket.
func (s *Service) Remove(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", objectKey, err)
	}
	return nil
}
