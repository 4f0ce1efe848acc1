package platform

import (
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client used here.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// StorageLocator hands out the bucket that deployment artifacts go to.
type StorageLocator interface {
	StorageLocation(ctx context.Context) (string, error)
}

// S3Storage implements Storage on Amazon S3.
type S3Storage struct {
	client  s3API
	locator StorageLocator
	bucket  string
	logger  *slog.Logger
}

// NewS3Storage creates S3-backed artifact storage. When bucket is empty the
// locator is asked for the platform's artifact bucket.
func NewS3Storage(client s3API, locator StorageLocator, bucket string, logger *slog.Logger) *S3Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Storage{
		client:  client,
		locator: locator,
		bucket:  bucket,
		logger:  logger.With("service", "s3"),
	}
}

// CreateOrGetBucket returns the configured bucket or the platform's storage location.
func (s *S3Storage) CreateOrGetBucket(ctx context.Context) (string, error) {
	if s.bucket != "" {
		return s.bucket, nil
	}
	bucket, err := s.locator.StorageLocation(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Debug("resolved storage location", "bucket", bucket)
	return bucket, nil
}

// PutObject uploads an object.
func (s *S3Storage) PutObject(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return serviceError("put object", "s3://"+bucket+"/"+key, err)
	}
	return nil
}
