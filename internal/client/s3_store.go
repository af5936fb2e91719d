package client

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/config"
)

// S3Store implements BlobStore against any S3-compatible endpoint
// (AWS S3, Cloudflare R2, MinIO).
type S3Store struct {
	s3Client *s3.Client
	bucket   string
}

func NewS3Store(cfg *config.S3Config) (*S3Store, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 configuration incomplete")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		s3Client: s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}

	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", key, err)
	}

	return key, nil
}

func (s *S3Store) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	}

	out, err := s.s3Client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", locator, err)
	}

	return out.Body, nil
}

func (s *S3Store) DeleteBestEffort(ctx context.Context, locator string) {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	}

	if _, err := s.s3Client.DeleteObject(ctx, input); err != nil {
		log.Warn().Err(err).Str("locator", locator).Msg("Blob delete failed")
	}
}
