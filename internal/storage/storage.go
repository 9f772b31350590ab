// Package storage publishes generated documents (portfolio snapshots) to
// local disk or an S3-compatible bucket.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/storage/drivers"
)

// ErrObjectNotFound is returned by drivers when a key does not exist.
var ErrObjectNotFound = drivers.ErrObjectNotFound

// Driver defines how we interact with the object storage
type Driver interface {
	// Save writes the content under key, replacing any previous object
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the object back and its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the object
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a public-facing URL
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
