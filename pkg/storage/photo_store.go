package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PhotoStore holds listing photos.
type PhotoStore interface {
	PutPhoto(ctx context.Context, itemID, filename string, r io.Reader, size int64, contentType string) (string, error)
	PhotoURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeletePhoto(ctx context.Context, key string) error
}

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ErrUnsupportedPhotoType rejects non-image uploads.
var ErrUnsupportedPhotoType = fmt.Errorf("unsupported photo content type")

// MinioPhotoStore implements PhotoStore on MinIO/S3 compatible storage.
type MinioPhotoStore struct {
	client *minio.Client
	bucket string
}

// NewMinioPhotoStore connects to MinIO and ensures the bucket exists.
func NewMinioPhotoStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioPhotoStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioPhotoStore{client: client, bucket: bucket}, nil
}

// PutPhoto uploads a photo under items/<itemID>/ and returns the object key.
// Only jpeg, png and webp are accepted.
func (m *MinioPhotoStore) PutPhoto(ctx context.Context, itemID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	ext, ok := allowedPhotoTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedPhotoType
	}
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	if base == "" || base == "." {
		base = "photo"
	}
	key := fmt.Sprintf("items/%s/%d-%s%s", itemID, time.Now().UnixNano(), base, ext)
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put photo: %w", err)
	}
	return key, nil
}

// PhotoURL generates a pre-signed GET URL for the photo.
func (m *MinioPhotoStore) PhotoURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign photo: %w", err)
	}
	return url.String(), nil
}

// DeletePhoto removes a photo object.
func (m *MinioPhotoStore) DeletePhoto(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
