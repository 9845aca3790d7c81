// Package poster uploads movie poster images to S3-compatible object storage.
package poster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// ErrDisabled is returned when no object storage is configured.
	ErrDisabled = errors.New("poster: object storage not configured")
	// ErrNotImage is returned for uploads whose content type is not image/*.
	ErrNotImage = errors.New("poster: content type must be image/*")
)

// Uploader stores a poster and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, movieID, filename string, body io.Reader, size int64, contentType string) (string, error)
}

// Config selects the bucket and how public URLs are formed.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the scheme and host used in returned URLs, e.g. a CDN origin.
	PublicURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store uploads posters into a single bucket.
type Store struct {
	client  objectPutter
	bucket  string
	baseURL string
	now     func() time.Time
}

// New connects to the configured endpoint. An empty endpoint yields a disabled store.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	return newStore(client, cfg), nil
}

func newStore(client objectPutter, cfg Config) *Store {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: base,
		now:     time.Now,
	}
}

// Upload writes the poster under `<movieID>-<unix>.<ext>` and returns its public URL.
func (s *Store) Upload(ctx context.Context, movieID, filename string, body io.Reader, size int64, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrDisabled
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", ErrNotImage
	}

	key := ObjectKey(movieID, filename, s.now())
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload poster: %w", err)
	}
	return s.PublicURL(key), nil
}

// PublicURL returns the URL a stored object is served from.
func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}

// ObjectKey names a poster object after its movie and upload time, keeping the file extension.
func ObjectKey(movieID, filename string, at time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" || strings.ContainsAny(ext, "/\\?#") {
		ext = "bin"
	}
	return fmt.Sprintf("%s-%d.%s", movieID, at.Unix(), ext)
}
