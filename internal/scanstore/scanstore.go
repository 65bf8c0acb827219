package scanstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store archives the uploaded scan image so the review UI can show the
// original invoice next to the extracted items.
type Store interface {
	Save(ctx context.Context, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// DiskStore keeps scan images as flat files under a base directory.
type DiskStore struct {
	basePath string
}

func NewDiskStore(basePath string) (*DiskStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scan directory: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

func (s *DiskStore) Save(_ context.Context, mimeType string, r io.Reader) (string, error) {
	key := fmt.Sprintf("scan_%d%s", time.Now().UnixNano(), extForMIME(mimeType))
	path := filepath.Join(s.basePath, key)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create scan file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write scan file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close scan file: %w", err)
	}
	return key, nil
}

func (s *DiskStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("scan image not found")
		}
		return nil, "", fmt.Errorf("failed to open scan file: %w", err)
	}
	return f, mimeForExt(path), nil
}

func (s *DiskStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete scan file: %w", err)
	}
	return nil
}

// resolve joins key onto the base path, rejecting directory traversal.
func (s *DiskStore) resolve(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid scan key")
	}
	return filepath.Join(s.basePath, key), nil
}

func extForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func mimeForExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
