// Package reliability archives the trade journal and the day's snapshot
// CSVs to an S3-compatible bucket (Cloudflare R2) on a maintenance
// cadence, and runs the routine WAL-checkpoint/integrity-check pass the
// teacher's maintenance jobs perform. Grounded on the teacher's
// r2_backup_service.go and maintenance_jobs.go shapes, adapted from a
// multi-database portfolio system to this engine's two SQLite stores
// (journal, users) plus the snapshot directory.
package reliability

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// R2Client wraps an S3-compatible client pointed at a Cloudflare R2
// account endpoint (https://<accountID>.r2.cloudflarestorage.com).
type R2Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// Object is one entry returned by List.
type Object struct {
	Key  string
	Size int64
}

// NewR2Client builds an S3 client against the R2 account endpoint using
// static credentials, matching the constructor signature the dependency
// wiring expects: (accountID, accessKeyID, secretAccessKey, bucket, log).
func NewR2Client(accountID, accessKeyID, secretAccessKey, bucket string, log zerolog.Logger) (*R2Client, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Client{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		log:      log.With().Str("component", "r2-client").Logger(),
	}, nil
}

// Upload streams r (size bytes) to key in the bucket.
func (c *R2Client) Upload(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("r2 upload %s: %w", key, err)
	}
	return nil
}

// List returns every object whose key starts with prefix.
func (c *R2Client) List(ctx context.Context, prefix string) ([]Object, error) {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("r2 list %s*: %w", prefix, err)
	}
	objs := make([]Object, 0, len(out.Contents))
	for _, o := range out.Contents {
		if o.Key == nil {
			continue
		}
		size := int64(0)
		if o.Size != nil {
			size = *o.Size
		}
		objs = append(objs, Object{Key: *o.Key, Size: size})
	}
	return objs, nil
}

// Download opens key for reading; the caller closes the returned body.
func (c *R2Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("r2 download %s: %w", key, err)
	}
	return out.Body, nil
}
