package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/config"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/storage/drivers"
)

func TestNewDriverFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		d, err := NewDriverFromConfig(ctx, config.StorageConfig{
			Type:           TypeLocal,
			LocalBaseDir:   t.TempDir(),
			LocalPublicURL: "/api/v1/files",
		})
		require.NoError(t, err)
		assert.IsType(t, &drivers.LocalFSDriver{}, d)
	})

	t.Run("s3 with static credentials and custom endpoint", func(t *testing.T) {
		d, err := NewDriverFromConfig(ctx, config.StorageConfig{
			Type:        TypeS3,
			S3Bucket:    "portfolios",
			S3Region:    "us-east-1",
			S3Endpoint:  "http://localhost:9000",
			S3AccessKey: "minio",
			S3SecretKey: "minio123",
		})
		require.NoError(t, err)
		assert.IsType(t, &drivers.S3Driver{}, d)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewDriverFromConfig(ctx, config.StorageConfig{Type: "gcs"})
		assert.ErrorContains(t, err, "unsupported storage type")
	})
}
