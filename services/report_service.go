package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"lab-equipment-api/apperrors"
	"lab-equipment-api/models"
)

type reportStore interface {
	Insert(ctx context.Context, report *models.Report) error
	ListAll(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	FindByID(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Report, error)
	Delete(ctx context.Context, id string) (*models.Report, error)
}

type photoStore interface {
	Save(ctx context.Context, data []byte, originalName, mimeType string) (string, error)
	URLFor(filename string) string
	Delete(ctx context.Context, filename string) error
}

// CreateReportInput carries the form fields of a new report. Status is not
// part of it: new reports always start pending.
type CreateReportInput struct {
	models.ReportFields
	Datetime string
}

// PhotoUpload is the optional picture attached to a new report.
type PhotoUpload struct {
	Data         []byte
	OriginalName string
	MimeType     string
}

// ReportService applies the report rules on top of the store and photo backend.
type ReportService struct {
	store  reportStore
	photos photoStore
	logger *zap.Logger
	now    func() time.Time
}

func NewReportService(store reportStore, photos photoStore, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		store:  store,
		photos: photos,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the text fields, stores the photo if any, then inserts.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput, photo *PhotoUpload) (*models.Report, error) {
	fields := in.ReportFields.Normalize()
	if errs := fields.Validate(); len(errs) > 0 {
		return nil, apperrors.Validation(errs)
	}

	report := &models.Report{
		Title:       fields.Title,
		Description: fields.Description,
		Location:    fields.Location,
		Laboratory:  fields.Laboratory,
		Datetime:    strings.TrimSpace(in.Datetime),
		Status:      models.StatusPending,
	}
	if report.Datetime == "" {
		report.Datetime = s.now().Format(time.RFC3339)
	}

	if photo != nil {
		filename, err := s.photos.Save(ctx, photo.Data, photo.OriginalName, photo.MimeType)
		if err != nil {
			return nil, s.photoError(err)
		}
		report.Photo = &filename
	}

	if err := s.store.Insert(ctx, report); err != nil {
		if report.Photo != nil {
			s.removePhoto(ctx, *report.Photo)
		}
		return nil, err
	}

	s.logger.Info("report created",
		zap.String("id", report.ID.Hex()),
		zap.String("laboratory", report.Laboratory),
		zap.Bool("photo", report.Photo != nil))
	return s.withPhotoURL(report), nil
}

func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation([]apperrors.FieldError{models.StatusFieldError(filter.Status)})
	}
	reports, err := s.store.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		s.withPhotoURL(&reports[i])
	}
	return reports, nil
}

func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withPhotoURL(report), nil
}

// UpdateStatus moves a report to any of the accepted statuses.
func (s *ReportService) UpdateStatus(ctx context.Context, id, status string) (*models.Report, error) {
	next := models.Status(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, apperrors.Validation([]apperrors.FieldError{models.StatusFieldError(next)})
	}
	report, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("report status updated", zap.String("id", id), zap.String("status", string(next)))
	return s.withPhotoURL(report), nil
}

// Delete removes the report and then, best effort, its photo.
func (s *ReportService) Delete(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.withPhotoURL(report)
	if report.Photo != nil {
		s.removePhoto(ctx, *report.Photo)
	}
	s.logger.Info("report deleted", zap.String("id", id))
	return report, nil
}

func (s *ReportService) withPhotoURL(report *models.Report) *models.Report {
	report.PhotoURL = nil
	if report.Photo != nil && *report.Photo != "" {
		url := s.photos.URLFor(*report.Photo)
		report.PhotoURL = &url
	}
	return report
}

func (s *ReportService) removePhoto(ctx context.Context, filename string) {
	if err := s.photos.Delete(ctx, filename); err != nil {
		s.logger.Warn("failed to remove photo", zap.String("photo", filename), zap.Error(err))
	}
}

// photoError keeps typed upload rejections and hides backend failures.
func (s *ReportService) photoError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.logger.Error("failed to store photo", zap.Error(err))
	return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to store photo")
}
