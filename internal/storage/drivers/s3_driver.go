package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultPresignTTL = time.Hour

// ObjectAPI is the subset of the S3 client used by S3Driver.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner signs GET requests for private buckets.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Driver keeps portfolio snapshots in an S3-compatible bucket.
type S3Driver struct {
	api       ObjectAPI
	presigner Presigner
	bucket    string
	publicURL string
}

// NewS3Driver wraps an S3 client. When publicURL is set, GenerateURL returns
// plain links under it instead of presigned ones.
func NewS3Driver(client *s3.Client, bucket, publicURL string) *S3Driver {
	return newS3Driver(client, s3.NewPresignClient(client), bucket, publicURL)
}

func newS3Driver(api ObjectAPI, presigner Presigner, bucket, publicURL string) *S3Driver {
	return &S3Driver{
		api:       api,
		presigner: presigner,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (d *S3Driver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// snapshots are rewritten on every approval; caches must revalidate
	_, err := d.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(d.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := d.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

func (d *S3Driver) Delete(ctx context.Context, key string) error {
	if _, err := d.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (d *S3Driver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if d.publicURL != "" {
		return d.publicURL + "/" + key, nil
	}
	if expires <= 0 {
		expires = defaultPresignTTL
	}
	req, err := d.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func isMissingObject(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
