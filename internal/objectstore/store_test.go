package objectstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rite/internal/config"
)

func TestConfigFrom(t *testing.T) {
	c, err := ConfigFrom(config.New("endpoint", "https://s3.local:9000", "bucket", "exports",
		"access_key", "ak", "secret_key", "sk", "secure", "true"))
	require.NoError(t, err)
	assert.Equal(t, Config{Endpoint: "https://s3.local:9000", Bucket: "exports", AccessKey: "ak", SecretKey: "sk", UseSSL: true}, c)

	_, err = ConfigFrom(config.New("endpoint", "x"))
	assert.ErrorContains(t, err, "bucket")
}

func TestNewS3StoreValidates(t *testing.T) {
	_, err := NewS3Store(Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.ErrorContains(t, err, "access key")

	_, err = NewS3Store(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket")

	s, err := NewS3Store(Config{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Put(ctx, "a.json", []byte("{}"), "application/json"))

	rc, err := m.Get(ctx, "a.json")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "{}", string(data))
	assert.Equal(t, "application/json", m.Types["a.json"])

	_, err = m.Get(ctx, "missing")
	assert.Error(t, err)
}
