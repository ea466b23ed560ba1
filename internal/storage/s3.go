package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
)

// objectUploader is the part of manager.Uploader the archive needs.
type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Store archives converted artifacts before they are removed locally.
type S3Store struct {
	uploader  objectUploader
	bucket    string
	keyPrefix string
	newRetry  func() backoff.BackOff
}

func NewS3Store(ctx context.Context, region, bucket, endpoint, keyPrefix string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}

	// custom endpoint (MinIO, localstack) needs path-style addressing
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(manager.NewUploader(client), bucket, keyPrefix), nil
}

func newS3Store(up objectUploader, bucket, keyPrefix string) *S3Store {
	return &S3Store{
		uploader:  up,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		newRetry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// ObjectKey builds the archive key for a conversion: <prefix>/<id>/<name>.
func ObjectKey(prefix, id, name string) string {
	return path.Join(prefix, id, path.Base(name))
}

// Archive uploads the file at localPath and returns the object key. Transient
// failures are retried with exponential backoff until ctx is done.
func (s *S3Store) Archive(ctx context.Context, id, localPath, contentType string) (string, error) {
	key := ObjectKey(s.keyPrefix, id, localPath)

	op := func() error {
		f, err := os.Open(localPath)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer f.Close()

		_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentType),
		})
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(s.newRetry(), ctx)); err != nil {
		return "", fmt.Errorf("archiving %s to s3://%s/%s: %w", localPath, s.bucket, key, err)
	}
	return key, nil
}
