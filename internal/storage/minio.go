// Package storage archives exported documents in an S3-compatible bucket
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
)

const defaultPresignTTL = 24 * time.Hour

// MinIOStorage is a thin wrapper around the minio client
type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

// NewMinIOStorage connects and makes sure the bucket exists
func NewMinIOStorage(cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, presignTTL: ttl}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("failed to ensure bucket %s: %w", s.bucket, err)
		}
	}

	logrus.Infof("Export archive bucket ready: %s", s.bucket)
	return s, nil
}

// Put uploads data under key
func (s *MinIOStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PresignedURL returns a GET link that downloads the object as filename
func (s *MinIOStorage) PresignedURL(ctx context.Context, key, filename string) (string, time.Time, error) {
	params := make(url.Values)
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	expires := time.Now().Add(s.presignTTL)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, params)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), expires, nil
}
