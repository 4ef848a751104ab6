package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSPhotoStore keeps photos as public objects in a Cloud Storage bucket.
type GCSPhotoStore struct {
	client   *gcstorage.Client
	bucket   string
	prefix   string
	maxBytes int64
	now      func() time.Time
}

func NewGCSPhotoStore(client *gcstorage.Client, bucket, prefix string, maxBytes int64) *GCSPhotoStore {
	return &GCSPhotoStore{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *GCSPhotoStore) objectName(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return s.prefix + "/" + filename
}

func (s *GCSPhotoStore) Save(ctx context.Context, data []byte, originalName, mimeType string) (string, error) {
	ext, contentType, err := checkPhoto(data, originalName, mimeType, s.maxBytes)
	if err != nil {
		return "", err
	}

	filename := newPhotoName(s.now(), ext)
	obj := s.client.Bucket(s.bucket).Object(s.objectName(filename)).
		If(gcstorage.Conditions{DoesNotExist: true})

	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		writer.Close() //nolint:errcheck
		return "", fmt.Errorf("upload photo to gcs: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish gcs upload: %w", err)
	}
	return filename, nil
}

func (s *GCSPhotoStore) URLFor(filename string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, s.objectName(filename))
}

func (s *GCSPhotoStore) Delete(ctx context.Context, filename string) error {
	if !validName(filename) {
		return fmt.Errorf("invalid photo name %q", filename)
	}
	err := s.client.Bucket(s.bucket).Object(s.objectName(filename)).Delete(ctx)
	if err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs photo: %w", err)
	}
	return nil
}

func (s *GCSPhotoStore) List(ctx context.Context) ([]StoredPhoto, error) {
	query := &gcstorage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	photos := make([]StoredPhoto, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gcs photos: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, query.Prefix)
		if !validName(name) {
			continue
		}
		photos = append(photos, StoredPhoto{Name: name, ModTime: attrs.Updated})
	}
	return photos, nil
}
