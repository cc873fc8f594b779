package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rite/internal/config"
)

// Store reads and writes whole objects in one bucket.
type Store interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Config holds the settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ConfigFrom reads endpoint, access_key, secret_key, secure, region and
// bucket.
func ConfigFrom(cfg *config.Configuration) (Config, error) {
	var c Config
	var err error
	if c.Endpoint, err = cfg.GetResult("endpoint"); err != nil {
		return c, err
	}
	if c.Bucket, err = cfg.GetResult("bucket"); err != nil {
		return c, err
	}
	c.AccessKey = cfg.GetOr("access_key", "")
	c.SecretKey = cfg.GetOr("secret_key", "")
	c.Region = cfg.GetOr("region", "")
	c.UseSSL = cfg.GetBoolOr("secure", false)
	return c, nil
}

// S3Store is a Store backed by minio-go.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

// NewS3Store creates a client for cfg. An endpoint given as a URL has its
// scheme stripped; https turns TLS on.
func NewS3Store(cfg Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	useSSL := cfg.UseSSL
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucketName: bucket, region: region}, nil
}

// ensureBucket creates the bucket on first write if it does not exist.
func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if !exists {
			s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
		}
	})
	return s.initErr
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("object key is required")
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucketName, key, err)
	}
	// GetObject is lazy; Stat surfaces a missing object here.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("get %s/%s: %w", s.bucketName, key, err)
	}
	return obj, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucketName, err)
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucketName, key, err)
	}
	return nil
}

// ── In-memory ──────────────────────────────────────────────

// MemoryStore keeps objects in a map. Useful for tests.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: object not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = bytes.Clone(data)
	m.Types[key] = contentType
	return nil
}
