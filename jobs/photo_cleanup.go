package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"lab-equipment-api/storage"
)

type photoLister interface {
	List(ctx context.Context) ([]storage.StoredPhoto, error)
	Delete(ctx context.Context, filename string) error
}

type photoReferences interface {
	PhotoNames(ctx context.Context) (map[string]struct{}, error)
}

// PhotoCleanup deletes stored photos that no report points to. Photos
// younger than grace are kept: a create request saves the photo before the
// report exists.
type PhotoCleanup struct {
	photos  photoLister
	reports photoReferences
	grace   time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewPhotoCleanup(photos photoLister, reports photoReferences, grace time.Duration, logger *zap.Logger) *PhotoCleanup {
	if logger == nil {
		logger = zap.NewNop()
	}
	if grace <= 0 {
		grace = time.Hour
	}
	return &PhotoCleanup{
		photos:  photos,
		reports: reports,
		grace:   grace,
		timeout: 5 * time.Minute,
		logger:  logger,
		now:     time.Now,
	}
}

// Run performs one sweep and returns the names it removed.
func (j *PhotoCleanup) Run(ctx context.Context) ([]string, error) {
	referenced, err := j.reports.PhotoNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load photo references: %w", err)
	}
	stored, err := j.photos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	cutoff := j.now().Add(-j.grace)
	removed := make([]string, 0)
	for _, photo := range stored {
		if _, ok := referenced[photo.Name]; ok {
			continue
		}
		if photo.ModTime.After(cutoff) {
			continue
		}
		if err := j.photos.Delete(ctx, photo.Name); err != nil {
			j.logger.Warn("failed to delete orphaned photo", zap.String("photo", photo.Name), zap.Error(err))
			continue
		}
		removed = append(removed, photo.Name)
	}
	return removed, nil
}

// Start schedules the sweep with a cron spec such as "@every 1h". The
// returned cron must be stopped by the caller.
func (j *PhotoCleanup) Start(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()

		removed, err := j.Run(ctx)
		if err != nil {
			j.logger.Error("photo cleanup failed", zap.Error(err))
			return
		}
		if len(removed) > 0 {
			j.logger.Info("photo cleanup removed orphans", zap.Int("count", len(removed)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule photo cleanup %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
