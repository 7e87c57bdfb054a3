package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores objects on the local filesystem under a base directory.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) fullPath(key string) string {
	// Strip leading slashes so a key can never escape the base directory.
	key = strings.TrimLeft(key, "/")
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *LocalStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	absPath := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", err
	}

	// Write to a temp file and rename so readers never see a partial object.
	tmp := absPath + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	return key, nil
}

func (s *LocalStorage) Get(ctx context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(s.fullPath(location))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalStorage) Delete(ctx context.Context, location string) (bool, error) {
	absPath := s.fullPath(location)
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(absPath); err != nil {
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) Exists(ctx context.Context, location string) (bool, error) {
	_, err := os.Stat(s.fullPath(location))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
