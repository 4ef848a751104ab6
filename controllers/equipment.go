package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"lab-equipment-api/apperrors"
	"lab-equipment-api/middleware"
	"lab-equipment-api/models"
	"lab-equipment-api/response"
	"lab-equipment-api/services"
)

type reportService interface {
	Create(ctx context.Context, in services.CreateReportInput, photo *services.PhotoUpload) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	Get(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Report, error)
	Delete(ctx context.Context, id string) (*models.Report, error)
}

// EquipmentController serves the /equipments resource.
type EquipmentController struct {
	reports       reportService
	logger        *zap.Logger
	maxPhotoBytes int64
}

func NewEquipmentController(reports reportService, logger *zap.Logger, maxPhotoBytes int64) *EquipmentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentController{reports: reports, logger: logger, maxPhotoBytes: maxPhotoBytes}
}

type createEquipmentRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Location    string `json:"location" form:"location"`
	Laboratory  string `json:"laboratory" form:"laboratory"`
	Datetime    string `json:"datetime" form:"datetime"`
}

type updateStatusRequest struct {
	Status string `json:"status" form:"status"`
}

func (h *EquipmentController) List(c *gin.Context) {
	filter := models.ReportFilter{Status: models.Status(c.Query("status"))}
	reports, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *EquipmentController) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Create accepts multipart (with an optional "photo" part), urlencoded or
// JSON bodies. Any status sent by the client is ignored.
func (h *EquipmentController) Create(c *gin.Context) {
	var (
		req   createEquipmentRequest
		photo *services.PhotoUpload
		err   error
	)

	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm:
		if err = c.Request.ParseMultipartForm(h.maxPhotoBytes); err != nil {
			response.Error(c, h.logger, h.formError(err))
			return
		}
		if err = c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
			response.Error(c, h.logger, h.formError(err))
			return
		}
		if photo, err = h.readPhoto(c); err != nil {
			response.Error(c, h.logger, err)
			return
		}
	case binding.MIMEPOSTForm:
		err = c.ShouldBindWith(&req, binding.Form)
	case binding.MIMEJSON:
		err = c.ShouldBindJSON(&req)
	default:
		err = apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unsupported content type %q", c.ContentType()))
	}
	if err != nil {
		response.Error(c, h.logger, h.formError(err))
		return
	}

	report, err := h.reports.Create(c.Request.Context(), services.CreateReportInput{
		ReportFields: models.ReportFields{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			Laboratory:  req.Laboratory,
		},
		Datetime: req.Datetime,
	}, photo)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *EquipmentController) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.logger, h.formError(err))
		return
	}
	report, err := h.reports.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *EquipmentController) Delete(c *gin.Context) {
	report, err := h.reports.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// readPhoto returns nil when the form has no "photo" part.
func (h *EquipmentController) readPhoto(c *gin.Context) (*services.PhotoUpload, error) {
	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, h.formError(err)
	}
	if h.maxPhotoBytes > 0 && header.Size > h.maxPhotoBytes {
		return nil, apperrors.Clone(apperrors.ErrFileTooLarge, fmt.Sprintf("photo exceeds %d bytes", h.maxPhotoBytes))
	}

	data, err := readAll(header, h.maxPhotoBytes)
	if err != nil {
		return nil, err
	}
	return &services.PhotoUpload{
		Data:         data,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
	}, nil
}

func readAll(header *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to open photo")
	}
	defer file.Close()

	var reader io.Reader = file
	if limit > 0 {
		// one extra byte lets the photo store see the overflow
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to read photo")
	}
	return data, nil
}

// formError maps body parsing failures onto client errors.
func (h *EquipmentController) formError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if middlewares.IsBodyTooLarge(err) {
		return apperrors.Clone(apperrors.ErrFileTooLarge, "request body too large")
	}
	return apperrors.Clone(apperrors.ErrValidation, "malformed request body")
}
