package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

var ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")

// ImageStore persists prescription images. It satisfies the object store
// port of the prescription service.
type ImageStore struct {
	client *Client
	log    logging.Logger
}

func NewImageStore(client *Client, log logging.Logger) *ImageStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ImageStore{client: client, log: log.Named("image_store")}
}

// Upload writes data under key. An empty content type is sniffed from the
// payload.
func (s *ImageStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "object key required")
	}
	if len(data) == 0 {
		return errors.New(errors.ErrCodeValidation, "object data required")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data[:min(512, len(data))])
	}

	info, err := s.client.api.PutObject(ctx, s.client.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "upload failed")
	}

	s.log.Debug("object uploaded",
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.String("content_type", contentType))
	return nil
}

// Get reads the full object stored under key.
func (s *ImageStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.api.GetObject(ctx, s.client.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "download failed")
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "stat failed")
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "download failed")
	}
	return data, nil
}

// PresignedURL returns a time-limited download link for key. A non-positive
// expiry falls back to the configured default.
func (s *ImageStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = s.client.cfg.PresignExpiry
	}
	u, err := s.client.api.PresignedGetObject(ctx, s.client.cfg.Bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "presign failed")
	}
	return u.String(), nil
}

// Exists reports whether key is present without fetching the payload.
func (s *ImageStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.api.StatObject(ctx, s.client.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeInternal, "stat failed")
	}
	return true, nil
}

// Delete removes key. Deleting a missing object is not an error.
func (s *ImageStore) Delete(ctx context.Context, key string) error {
	if err := s.client.api.RemoveObject(ctx, s.client.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "delete failed")
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
