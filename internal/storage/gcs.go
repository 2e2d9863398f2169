package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStorage загружает файлы в бакет Google Cloud Storage и отдаёт
// публичные URL вида https://storage.googleapis.com/<bucket>/<object>.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	return s.PublicURL(object), nil
}

func (s *GCSStorage) PublicURL(object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object)
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
