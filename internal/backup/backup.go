// Package backup snapshots datastore files to S3 or an S3-compatible
// endpoint. Grounded on the teacher's pkg/store/content/s3 package,
// repurposed from chunked object-store content storage (one object per
// file, multipart uploads for large content) to whole-file datastore
// snapshotting: one object per backup, named by database and instant.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yangconf/confd/internal/logger"
)

// Config configures the S3 backend a Client uploads snapshots to.
type Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // non-empty for S3-compatible stores (MinIO, etc.)
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string

	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
}

// Client uploads and retrieves whole-database snapshots from S3.
type Client struct {
	client *s3.Client
	bucket string
	prefix string
	retry  Config
}

// NewClient builds an S3 client from cfg and wraps it for snapshotting.
// When cfg.AccessKeyID is empty, the default AWS credential chain is
// used instead of static credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup: bucket not configured")
	}
	cfg.applyDefaults()

	var optFns []func(*config.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("backup: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Client{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, retry: cfg}, nil
}

// Snapshot uploads data as a new backup object for db, named by the
// database and the current instant, and returns the object key.
func (c *Client) Snapshot(ctx context.Context, db string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := c.objectKey(db, time.Now().UTC())
	var lastErr error
	for attempt := 0; attempt <= int(c.retry.MaxRetries); attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt - 1)
			logger.Debug("backup: retrying snapshot upload", "attempt", attempt, "key", key, "backoff", backoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if lastErr == nil {
			return key, nil
		}
	}

	return "", fmt.Errorf("backup: upload snapshot for %s after %d attempts: %w", db, c.retry.MaxRetries+1, lastErr)
}

// Restore downloads the snapshot object stored under key.
func (c *Client) Restore(ctx context.Context, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("backup: get snapshot %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("backup: read snapshot %s: %w", key, err)
	}
	return data, nil
}

// List returns the keys of every snapshot stored for db, newest first.
func (c *Client) List(ctx context.Context, db string) ([]string, error) {
	prefix := c.dbPrefix(db)
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup: list snapshots for %s: %w", db, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Delete removes the snapshot stored under key. Deleting a snapshot
// that no longer exists is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	var nf *types.NoSuchKey
	if err != nil && !errors.As(err, &nf) {
		return fmt.Errorf("backup: delete snapshot %s: %w", key, err)
	}
	return nil
}

// putTo uploads data to an explicit bucket/key, bypassing the db-scoped
// naming scheme Snapshot uses — Engine.Backup's s3:// dispatch target,
// which names its own bucket and key rather than deriving them.
func (c *Client) putTo(ctx context.Context, bucket, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("backup: upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// getFrom downloads an explicit bucket/key — Engine.Restore's s3://
// dispatch counterpart to putTo.
func (c *Client) getFrom(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("backup: get s3://%s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

func (c *Client) objectKey(db string, at time.Time) string {
	return fmt.Sprintf("%s%s.snapshot", c.dbPrefix(db), at.Format("20060102T150405Z"))
}

// dbPrefix returns the key prefix that scopes listing to one database's
// snapshots: <prefix>/<db>-, so List never returns another database's
// objects even when they share a bucket prefix.
func (c *Client) dbPrefix(db string) string {
	if c.prefix == "" {
		return db + "-"
	}
	return c.prefix + "/" + db + "-"
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.retry.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > c.retry.MaxBackoff {
			return c.retry.MaxBackoff
		}
	}
	return d
}
