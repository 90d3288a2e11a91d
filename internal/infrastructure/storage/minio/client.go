// Package minio stores dataset artifacts and rendered reports in
// S3-compatible object storage.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/datamigrate/internal/config"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// MinIOAPI is the subset of the minio client this module uses, abstracted
// for testing.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Client wraps the minio SDK with bucket bootstrap for the dataset and
// report buckets.
type Client struct {
	api    MinIOAPI
	config config.MinIOConfig
	logger logging.Logger
}

// NewClient connects, verifies reachability, and ensures both buckets
// exist.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio").WithDetail(cfg.Endpoint)
	}

	client := &Client{api: api, config: cfg, logger: log}
	if err := client.EnsureBuckets(ctx); err != nil {
		return nil, err
	}

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return client, nil
}

// NewClientWithAPI wires a pre-built API, used by tests.
func NewClientWithAPI(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *Client {
	return &Client{api: api, config: cfg, logger: log}
}

// DatasetBucket returns the bucket holding CSV artifacts.
func (c *Client) DatasetBucket() string { return c.config.DatasetBucket }

// ReportBucket returns the bucket holding rendered reports.
func (c *Client) ReportBucket() string { return c.config.ReportBucket }

// EnsureBuckets creates the dataset and report buckets when missing.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{c.config.DatasetBucket, c.config.ReportBucket} {
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket").WithDetail(bucket)
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail(bucket)
		}
		c.logger.Info("Created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// HealthStatus reports storage reachability and bucket presence.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Buckets map[string]bool
	Error   string
}

// HealthCheck lists buckets and verifies both configured buckets exist.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
		Buckets: make(map[string]bool, 2),
	}
	if err != nil {
		status.Error = err.Error()
		return status
	}
	for _, b := range []string{c.config.DatasetBucket, c.config.ReportBucket} {
		exists, _ := c.api.BucketExists(ctx, b)
		status.Buckets[b] = exists
		if !exists {
			status.Healthy = false
			status.Error = "bucket " + b + " missing"
		}
	}
	return status
}

// PresignedGetURL returns a time-limited download URL for an object.
func (c *Client) PresignedGetURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = c.config.PresignExpiry
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	u, err := c.api.PresignedGetObject(ctx, bucket, object, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign object").WithDetail(object)
	}
	return u.String(), nil
}
