package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var _ CoverStore = (*minioCoverStore)(nil) // ensure minioCoverStore implements CoverStore.

// minioCoverStore keeps covers as objects of one S3-compatible bucket.
// Selected with images backend `s3`; useful when several instances
// share the catalogue and a local images folder cannot work.
type minioCoverStore struct {
	logger *zap.Logger
	client *minio.Client
	config *MinioConfig
}

// NewMinioCoverStore provides a ready to use S3-backed cover store.
func NewMinioCoverStore(logger *zap.Logger, config *MinioConfig) (CoverStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &minioCoverStore{logger: logger, client: client, config: config}, nil
}

// Save uploads a cover blob into the configured bucket.
func (ms *minioCoverStore) Save(ctx context.Context, filename string, data []byte) error {
	_, err := ms.client.PutObject(ctx, ms.config.Bucket, filename,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return fmt.Errorf("failed to upload cover %s: %w", filename, err)
	}
	return nil
}

// Delete removes a cover object. Removing an absent object is a no-op
// on the S3 side already.
func (ms *minioCoverStore) Delete(ctx context.Context, filename string) error {
	return ms.client.RemoveObject(ctx, ms.config.Bucket, filename, minio.RemoveObjectOptions{})
}

// URL builds the public address of a cover object. The request base URL
// is ignored since the bucket has its own public endpoint.
func (ms *minioCoverStore) URL(_, filename string) string {
	return ms.config.PublicBaseURL + "/" + ms.config.Bucket + "/" + filename
}
