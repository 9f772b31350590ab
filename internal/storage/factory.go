package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/config"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/storage/drivers"
)

// Storage types accepted in STORAGE_TYPE.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// NewDriverFromConfig builds the driver portfolio snapshots are written to.
func NewDriverFromConfig(ctx context.Context, cfg config.StorageConfig) (Driver, error) {
	switch cfg.Type {
	case TypeLocal:
		slog.Info("snapshot storage: local", "dir", cfg.LocalBaseDir, "publicURL", cfg.LocalPublicURL)
		return drivers.NewLocalFSDriver(cfg.LocalBaseDir, cfg.LocalPublicURL)
	case TypeS3:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("snapshot storage: s3", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return drivers.NewS3Driver(client, cfg.S3Bucket, cfg.S3PublicURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint == "" {
			return
		}
		// custom endpoints (MinIO, LocalStack) need path-style addressing
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	}), nil
}
