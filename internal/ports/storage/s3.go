package storage

import (
	"context"
	"time"
)

// IContentStorage хранилище файлов книг (S3/MinIO)
type IContentStorage interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
