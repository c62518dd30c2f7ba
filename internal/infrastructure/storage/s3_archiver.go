// Package storage archives import files in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	importapp "github.com/truthsource/backend/internal/application/import"
	"github.com/truthsource/backend/internal/infrastructure/config"
)

// defaultDownloadExpiration bounds presigned download links
const defaultDownloadExpiration = 15 * time.Minute

// S3Archiver stores uploaded import files in an S3 bucket. It works with any
// S3-compatible backend (AWS S3, MinIO) via a custom endpoint.
type S3Archiver struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	logger        *zap.Logger
}

// S3ArchiverOption configures an S3Archiver
type S3ArchiverOption func(*S3Archiver)

// WithLogger sets the archiver logger
func WithLogger(logger *zap.Logger) S3ArchiverOption {
	return func(a *S3Archiver) {
		a.logger = logger
	}
}

// NewS3Archiver builds the S3 client from configuration
func NewS3Archiver(cfg *config.StorageConfig, opts ...S3ArchiverOption) (*S3Archiver, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("build aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archiver := &S3Archiver{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archiver)
	}
	return archiver, nil
}

// EnsureBucket creates the bucket if it does not exist. Call once at startup.
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("check bucket: %w", err)
	}

	a.logger.Info("creating storage bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// ArchiveImport stores a copy of the uploaded CSV under a tenant-scoped key
// and returns that key
func (a *S3Archiver) ArchiveImport(ctx context.Context, orgID, importID uuid.UUID, fileName string, data []byte) (string, error) {
	key := importObjectKey(orgID, importID, fileName)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("archive import file: %w", err)
	}

	a.logger.Debug("archived import file",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return key, nil
}

// DownloadURL returns a presigned GET URL for an archived file
func (a *S3Archiver) DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = defaultDownloadExpiration
	}

	req, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}

// importObjectKey builds the tenant-scoped object key. The file name is
// reduced to its base so uploaded paths cannot escape the prefix.
func importObjectKey(orgID, importID uuid.UUID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "import.csv"
	}
	return fmt.Sprintf("imports/%s/%s/%s", orgID, importID, name)
}

var _ importapp.FileArchiver = (*S3Archiver)(nil)
