package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ObjectStore is the storage surface the services use for CSV artifacts
// and rendered reports.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, object, filePath, contentType string) error
	UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) error
	DownloadFile(ctx context.Context, bucket, object, filePath string) error
	ReadBytes(ctx context.Context, bucket, object string) ([]byte, error)
	Remove(ctx context.Context, bucket, object string) error
	Stat(ctx context.Context, bucket, object string) (ObjectMeta, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error)
}

// ObjectMeta describes one stored object.
type ObjectMeta struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

type minioStore struct {
	client *Client
	logger logging.Logger
}

// NewObjectStore builds the store over a connected client.
func NewObjectStore(client *Client, log logging.Logger) ObjectStore {
	return &minioStore{client: client, logger: log}
}

func (s *minioStore) UploadFile(ctx context.Context, bucket, object, filePath, contentType string) error {
	_, err := s.client.api.FPutObject(ctx, bucket, object, filePath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to upload file").WithDetail(object)
	}
	s.logger.Debug("Uploaded object", logging.String("bucket", bucket), logging.String("object", object))
	return nil
}

func (s *minioStore) UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	_, err := s.client.api.PutObject(ctx, bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to upload object").WithDetail(object)
	}
	return nil
}

func (s *minioStore) DownloadFile(ctx context.Context, bucket, object, filePath string) error {
	if err := s.client.api.FGetObject(ctx, bucket, object, filePath, minio.GetObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to download object").WithDetail(object)
	}
	return nil
}

func (s *minioStore) ReadBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	obj, err := s.client.api.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to get object").WithDetail(object)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read object").WithDetail(object)
	}
	return data, nil
}

func (s *minioStore) Remove(ctx context.Context, bucket, object string) error {
	if err := s.client.api.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to remove object").WithDetail(object)
	}
	return nil
}

func (s *minioStore) Stat(ctx context.Context, bucket, object string) (ObjectMeta, error) {
	info, err := s.client.api.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return ObjectMeta{}, errors.New(errors.ErrCodeNotFound, "object not found").WithDetail(object)
		}
		return ObjectMeta{}, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat object").WithDetail(object)
	}
	return ObjectMeta{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func (s *minioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error) {
	var metas []ObjectMeta
	for obj := range s.client.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list objects").WithDetail(prefix)
		}
		metas = append(metas, ObjectMeta{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}
	return metas, nil
}
