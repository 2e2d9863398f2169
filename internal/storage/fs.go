package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStorage — локальное файловое хранилище для разработки.
// Объекты раздаются снаружи как <baseURL>/<object>.
type FSStorage struct {
	dir     string
	baseURL string
}

func NewFSStorage(dir, baseURL string) (*FSStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FSStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FSStorage) Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error) {
	_ = contentType

	dst := filepath.Join(s.dir, filepath.FromSlash(object))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	return s.PublicURL(object), nil
}

func (s *FSStorage) PublicURL(object string) string {
	return s.baseURL + "/" + object
}
