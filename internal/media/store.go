package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// S3API is the slice of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads generated images to S3 and fetches user media for the
// vision models.
type Store struct {
	s3      S3API
	bucket  string
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client used for media downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) { s.http = client }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a media store. baseURL is the public prefix the
// bucket is served from, e.g. a CloudFront distribution.
func NewStore(client S3API, bucket, baseURL string, opts ...Option) *Store {
	if client == nil {
		panic("media: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("media: bucket cannot be empty")
	}
	store := &Store{
		s3:      client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// UploadImage stores a base64-encoded image and returns its public
// URL. Generated images are always rendered as JPEG-compatible
// payloads, so the object key carries a .jpg suffix.
func (s *Store) UploadImage(ctx context.Context, b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("media: failed to decode image payload: %w", err)
	}
	return s.Upload(ctx, data, "image/jpeg")
}

// Upload stores raw media bytes under the uploads prefix and returns
// the public URL.
func (s *Store) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("uploads/%s%s", uuid.NewString(), extensionFor(contentType))
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("media: failed to upload media: %w", err)
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, key)
	s.logger.Info("uploaded media", "key", key, "content_type", contentType, "bytes", len(data))
	return url, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "image/"):
		return ".jpg"
	case strings.HasPrefix(contentType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(contentType, "audio/mpeg"):
		return ".mp3"
	case strings.HasPrefix(contentType, "audio/"):
		return ".ogg"
	default:
		return ".bin"
	}
}

// FetchBytes downloads media from a URL and returns the raw bytes and
// content type.
func (s *Store) FetchBytes(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("media: failed to build download request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media: failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media: download of %s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", fmt.Errorf("media: failed to read media body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// Fetch downloads media from a URL and returns it as a data URI
// suitable for passing to the vision models.
func (s *Store) Fetch(ctx context.Context, url string) (string, error) {
	data, contentType, err := s.FetchBytes(ctx, url)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
