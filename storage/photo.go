// Package storage holds the photo backends that keep uploaded equipment
// pictures. Photos are addressed by the generated filename only.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"lab-equipment-api/apperrors"
)

const DefaultMaxPhotoBytes int64 = 5 * 1024 * 1024

// PhotoStore is implemented by LocalPhotoStore and GCSPhotoStore.
type PhotoStore interface {
	Save(ctx context.Context, data []byte, originalName, mimeType string) (string, error)
	URLFor(filename string) string
	Delete(ctx context.Context, filename string) error
	List(ctx context.Context) ([]StoredPhoto, error)
}

// StoredPhoto is a listing entry used by the orphan sweep.
type StoredPhoto struct {
	Name    string
	ModTime time.Time
}

// checkPhoto enforces the size limit and that both the declared and the
// sniffed content types are images. It returns the extension to store under
// and the sniffed content type.
func checkPhoto(data []byte, originalName, mimeType string, maxBytes int64) (string, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	if int64(len(data)) > maxBytes {
		return "", "", apperrors.Clone(apperrors.ErrFileTooLarge, fmt.Sprintf("photo exceeds %d bytes", maxBytes))
	}
	if len(data) == 0 {
		return "", "", apperrors.Clone(apperrors.ErrInvalidFileType, "photo is empty")
	}

	declared := strings.ToLower(strings.TrimSpace(mimeType))
	if declared != "" && !strings.HasPrefix(declared, "image/") {
		return "", "", apperrors.Clone(apperrors.ErrInvalidFileType, fmt.Sprintf("content type %q is not an image", mimeType))
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", "", apperrors.Clone(apperrors.ErrInvalidFileType, fmt.Sprintf("file content %q is not an image", detected.String()))
	}

	ext := detected.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(originalName))
	}
	return ext, detected.String(), nil
}

// newPhotoName returns a timestamp-prefixed name that cannot collide with
// earlier uploads.
func newPhotoName(now time.Time, ext string) string {
	return fmt.Sprintf("%d-%s%s", now.UnixNano(), uuid.NewString(), ext)
}

// validName rejects anything that could escape the photo area.
func validName(filename string) bool {
	return filename != "" &&
		filename == filepath.Base(filename) &&
		!strings.ContainsAny(filename, `/\`) &&
		filename != "." && filename != ".."
}

var (
	_ PhotoStore = (*LocalPhotoStore)(nil)
	_ PhotoStore = (*GCSPhotoStore)(nil)
)
