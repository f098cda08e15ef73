package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config configures the S3 backend. Endpoint is set for S3-compatible
// stores such as MinIO; PublicURL overrides the virtual-hosted URL.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores blobs in an S3 bucket
type S3Storage struct {
	client    s3API
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

// NewS3Storage builds an S3 client from cfg. Static keys are used when set,
// otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return newS3Storage(client, cfg.Bucket, publicURL, logger), nil
}

func newS3Storage(client s3API, bucket, publicURL string, logger zerolog.Logger) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("component", "filestorage").Str("backend", "s3").Logger(),
	}
}

// Store uploads data under objectPath
func (s *S3Storage) Store(ctx context.Context, objectPath string, data []byte) (string, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to upload object")
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return s.URLFor(key), nil
}

// URLFor returns the public URL of objectPath
func (s *S3Storage) URLFor(objectPath string) string {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return ""
	}
	return s.publicURL + "/" + key
}

// Delete removes the object
func (s *S3Storage) Delete(ctx context.Context, objectPath string) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
