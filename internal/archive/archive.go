package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore сохраняет опубликованные документы по логическому пути.
type ObjectStore interface {
	Put(ctx context.Context, path string, body []byte, contentType string) error
}

// S3Store публикует документы в бакет S3.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store создаёт S3Store с учётными данными из окружения.
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Put записывает body по ключу path. Существующий объект перезаписывается.
func (s *S3Store) Put(ctx context.Context, path string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, path, err)
	}
	return nil
}
