package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadsRoute is where the HTTP layer serves the local photo directory.
const UploadsRoute = "/uploads"

// LocalPhotoStore keeps photos in a directory served as static files.
type LocalPhotoStore struct {
	baseDir  string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// NewLocalPhotoStore ensures the base directory exists.
func NewLocalPhotoStore(baseDir, publicBaseURL string, maxBytes int64) (*LocalPhotoStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalPhotoStore{
		baseDir:  baseDir,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Dir is the directory to mount under UploadsRoute.
func (s *LocalPhotoStore) Dir() string {
	return s.baseDir
}

func (s *LocalPhotoStore) Save(ctx context.Context, data []byte, originalName, mimeType string) (string, error) {
	ext, _, err := checkPhoto(data, originalName, mimeType, s.maxBytes)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename := newPhotoName(s.now(), ext)
	path := filepath.Join(s.baseDir, filename)

	// O_EXCL: an existing photo is never overwritten
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close() //nolint:errcheck
		_ = os.Remove(path)
		return "", fmt.Errorf("write photo file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close photo file: %w", err)
	}
	return filename, nil
}

func (s *LocalPhotoStore) URLFor(filename string) string {
	return s.baseURL + UploadsRoute + "/" + filename
}

// Delete removes a stored photo. A missing file is not an error.
func (s *LocalPhotoStore) Delete(_ context.Context, filename string) error {
	if !validName(filename) {
		return fmt.Errorf("invalid photo name %q", filename)
	}
	if err := os.Remove(filepath.Join(s.baseDir, filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete photo file: %w", err)
	}
	return nil
}

func (s *LocalPhotoStore) List(ctx context.Context) ([]StoredPhoto, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read uploads directory: %w", err)
	}
	photos := make([]StoredPhoto, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat photo file: %w", err)
		}
		photos = append(photos, StoredPhoto{Name: entry.Name(), ModTime: info.ModTime()})
	}
	return photos, nil
}
