package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config хранилище файлов книг. Без Endpoint чтение книг отключено, покупки работают
type Config struct {
	Endpoint   string        `envconfig:"HOST"` // minio:9000
	Region     string        `envconfig:"REGION"`
	AccessKey  string        `envconfig:"ACCESS_KEY"`
	SecretKey  string        `envconfig:"SECRET_KEY"`
	Bucket     string        `envconfig:"BUCKET" default:"books"`
	UseSSL     bool          `envconfig:"USE_SSL" default:"false"`
	PresignTTL time.Duration `envconfig:"PRESIGN_TTL" default:"15m"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

func (c *Config) options() (*minio.Options, error) {
	if c.Bucket == "" {
		return nil, errors.New("s3 bucket is not set")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return nil, errors.New("s3 credentials are not set")
	}
	return &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	}, nil
}

// Connect открывает клиента и проверяет, что бакет с книгами уже создан
func (c *Config) Connect(ctx context.Context) (*minio.Client, error) {
	opts, err := c.options()
	if err != nil {
		return nil, err
	}

	client, err := minio.New(c.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ok, err := client.BucketExists(ctx, c.Bucket)
	switch {
	case err != nil:
		return nil, fmt.Errorf("check bucket %s: %w", c.Bucket, err)
	case !ok:
		return nil, fmt.Errorf("bucket %s not found, upload books first", c.Bucket)
	}
	return client, nil
}
