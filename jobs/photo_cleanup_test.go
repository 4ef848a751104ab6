package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lab-equipment-api/storage"
)

type fakePhotos struct {
	stored  []storage.StoredPhoto
	deleted []string
	failOn  string
}

func (f *fakePhotos) List(ctx context.Context) ([]storage.StoredPhoto, error) {
	return f.stored, nil
}

func (f *fakePhotos) Delete(ctx context.Context, filename string) error {
	if filename == f.failOn {
		return errors.New("permission denied")
	}
	f.deleted = append(f.deleted, filename)
	return nil
}

type fakeRefs struct {
	names map[string]struct{}
	err   error
}

func (f fakeRefs) PhotoNames(ctx context.Context) (map[string]struct{}, error) {
	return f.names, f.err
}

func TestPhotoCleanupRemovesOldOrphans(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	photos := &fakePhotos{
		stored: []storage.StoredPhoto{
			{Name: "1-kept.png", ModTime: now.Add(-48 * time.Hour)},
			{Name: "2-orphan.png", ModTime: now.Add(-2 * time.Hour)},
			{Name: "3-fresh.png", ModTime: now.Add(-time.Minute)},
			{Name: "4-locked.png", ModTime: now.Add(-3 * time.Hour)},
		},
		failOn: "4-locked.png",
	}
	refs := fakeRefs{names: map[string]struct{}{"1-kept.png": {}}}

	job := NewPhotoCleanup(photos, refs, time.Hour, zap.NewNop())
	job.now = func() time.Time { return now }

	removed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2-orphan.png"}, removed)
	assert.Equal(t, []string{"2-orphan.png"}, photos.deleted)
}

func TestPhotoCleanupStopsOnReferenceError(t *testing.T) {
	photos := &fakePhotos{stored: []storage.StoredPhoto{{Name: "1-a.png"}}}
	job := NewPhotoCleanup(photos, fakeRefs{err: errors.New("timeout")}, time.Hour, nil)

	_, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, photos.deleted)
}

func TestPhotoCleanupStart(t *testing.T) {
	job := NewPhotoCleanup(&fakePhotos{}, fakeRefs{}, time.Hour, nil)

	_, err := job.Start("not a schedule")
	assert.Error(t, err)

	c, err := job.Start("@every 1h")
	require.NoError(t, err)
	ctx := c.Stop()
	<-ctx.Done()
}
