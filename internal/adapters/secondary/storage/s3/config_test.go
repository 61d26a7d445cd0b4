package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigEnabled(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.Enabled())
	assert.False(t, (&Config{Bucket: "books"}).Enabled())
	assert.True(t, (&Config{Endpoint: "minio:9000"}).Enabled())
}

func TestConfigOptions(t *testing.T) {
	cfg := &Config{Endpoint: "minio:9000", AccessKey: "key", SecretKey: "secret", Bucket: "books", Region: "ru-central1", UseSSL: true}

	opts, err := cfg.options()
	require.NoError(t, err)
	assert.True(t, opts.Secure)
	assert.Equal(t, "ru-central1", opts.Region)

	creds, err := opts.Creds.Get()
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AccessKeyID)
}

func TestConnectRejectsIncompleteConfig(t *testing.T) {
	_, err := (&Config{Endpoint: "minio:9000", AccessKey: "key", SecretKey: "secret"}).Connect(context.Background())
	assert.ErrorContains(t, err, "bucket")

	_, err = (&Config{Endpoint: "minio:9000", Bucket: "books"}).Connect(context.Background())
	assert.ErrorContains(t, err, "credentials")
}
