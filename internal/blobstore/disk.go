package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// DiskStore writes blobs into a local directory served under urlPrefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir returns the directory blobs are written to.
func (d *DiskStore) Dir() string {
	return d.dir
}

func (d *DiskStore) Put(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := NewKey(obj.ContentType)
	fullPath := filepath.Join(d.dir, key)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}

	if _, err := io.Copy(f, obj.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return key, nil
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, filepath.Base(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (d *DiskStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return path.Join(d.urlPrefix, key)
}
