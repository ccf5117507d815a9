package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cumulus/internal/domain/services"
)

// LocalStore keeps entity content as flat files under a base directory,
// one file per storage key. Keys are derived from entity ids and never
// contain path separators.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed and returns a
// store rooted there.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

var _ services.ContentStore = (*LocalStore)(nil)

func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, key), nil
}

// Write stores content under key and returns the byte count. An
// existing key is overwritten.
func (s *LocalStore) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	path, err := s.path(key)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write content %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("finalize content %s: %w", key, err)
	}
	return n, nil
}

// Copy duplicates srcKey's bytes under dstKey.
func (s *LocalStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	srcPath, err := s.path(srcKey)
	if err != nil {
		return err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source %s: %w", srcKey, err)
	}
	defer src.Close()

	if _, err := s.Write(ctx, dstKey, src); err != nil {
		return err
	}
	return nil
}

// Open returns the content for reading.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content %s: %w", key, err)
	}
	return f, nil
}

// Exists reports whether a key is occupied.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat content %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete content %s: %w", key, err)
	}
	return nil
}
