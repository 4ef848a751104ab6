package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lab-equipment-api/apperrors"
	"lab-equipment-api/models"
	"lab-equipment-api/services"
)

type reportServiceMock struct {
	createIn    services.CreateReportInput
	createPhoto *services.PhotoUpload
	createErr   error
	listFilter  models.ReportFilter
	list        []models.Report
	listErr     error
	statusID    string
	status      string
	statusErr   error
	deleteErr   error
}

func (m *reportServiceMock) Create(ctx context.Context, in services.CreateReportInput, photo *services.PhotoUpload) (*models.Report, error) {
	m.createIn = in
	m.createPhoto = photo
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Report{ID: primitive.NewObjectID(), Title: in.Title, Status: models.StatusPending}, nil
}

func (m *reportServiceMock) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	m.listFilter = filter
	return m.list, m.listErr
}

func (m *reportServiceMock) Get(ctx context.Context, id string) (*models.Report, error) {
	return nil, apperrors.ErrNotFound
}

func (m *reportServiceMock) UpdateStatus(ctx context.Context, id, status string) (*models.Report, error) {
	m.statusID, m.status = id, status
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &models.Report{Status: models.Status(status)}, nil
}

func (m *reportServiceMock) Delete(ctx context.Context, id string) (*models.Report, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &models.Report{Title: "deleted"}, nil
}

func newEngine(h *EquipmentController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/equipments", h.List)
	r.POST("/equipments", h.Create)
	r.GET("/equipments/:id", h.Get)
	r.PUT("/equipments/:id", h.UpdateStatus)
	r.DELETE("/equipments/:id", h.Delete)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileType string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="`+fileName+`"`)
		h.Set("Content-Type", fileType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *apperrors.Error {
	t.Helper()
	var body struct {
		Error *apperrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error
}

func TestEquipmentCreateMultipartWithPhoto(t *testing.T) {
	svc := &reportServiceMock{}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Projetor sem ligar",
		"description": "não liga",
		"location":    "Mesa 5",
		"laboratory":  "Lab 1",
		"datetime":    "2024-05-01T10:00:00Z",
		"status":      "concluido",
	}, "foto.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff, 0xe0})

	req := httptest.NewRequest(http.MethodPost, "/equipments", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Projetor sem ligar", svc.createIn.Title)
	assert.Equal(t, "2024-05-01T10:00:00Z", svc.createIn.Datetime)
	require.NotNil(t, svc.createPhoto)
	assert.Equal(t, "foto.jpg", svc.createPhoto.OriginalName)
	assert.Equal(t, "image/jpeg", svc.createPhoto.MimeType)
	assert.Len(t, svc.createPhoto.Data, 4)

	var created models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)
}

func TestEquipmentCreateWithoutPhoto(t *testing.T) {
	svc := &reportServiceMock{}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	body, contentType := multipartBody(t, map[string]string{"title": "Balança"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/equipments", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, svc.createPhoto)
}

func TestEquipmentCreateJSON(t *testing.T) {
	svc := &reportServiceMock{}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	req := httptest.NewRequest(http.MethodPost, "/equipments", strings.NewReader(`{"title":"Centrífuga","laboratory":"Lab 2"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Lab 2", svc.createIn.Laboratory)
}

func TestEquipmentCreateRejectsOversizedPhoto(t *testing.T) {
	svc := &reportServiceMock{}
	r := newEngine(NewEquipmentController(svc, nil, 16))

	body, contentType := multipartBody(t, map[string]string{"title": "x"}, "big.png", "image/png", bytes.Repeat([]byte{1}, 64))
	req := httptest.NewRequest(http.MethodPost, "/equipments", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrFileTooLarge.Code, decodeError(t, w).Code)
	assert.Empty(t, svc.createIn.Title)
}

func TestEquipmentCreateUnsupportedContentType(t *testing.T) {
	r := newEngine(NewEquipmentController(&reportServiceMock{}, nil, 5<<20))

	req := httptest.NewRequest(http.MethodPost, "/equipments", strings.NewReader("title"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrValidation.Code, decodeError(t, w).Code)
}

func TestEquipmentCreateValidationError(t *testing.T) {
	svc := &reportServiceMock{createErr: apperrors.Validation([]apperrors.FieldError{{Field: "description", Message: "description is required"}})}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	req := httptest.NewRequest(http.MethodPost, "/equipments", strings.NewReader("title=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	appErr := decodeError(t, w)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "description", appErr.Details[0].Field)
}

func TestEquipmentListPassesFilter(t *testing.T) {
	svc := &reportServiceMock{list: []models.Report{}}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/equipments?status=em_manutencao", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, models.StatusInMaintenance, svc.listFilter.Status)
}

func TestEquipmentListHidesPersistenceCause(t *testing.T) {
	svc := &reportServiceMock{listErr: apperrors.Persistence(errors.New("dial tcp 10.0.0.5:27017: connection refused"))}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/equipments", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Equal(t, apperrors.ErrPersistence.Code, decodeError(t, w).Code)
}

func TestEquipmentUpdateStatus(t *testing.T) {
	svc := &reportServiceMock{}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	req := httptest.NewRequest(http.MethodPut, "/equipments/abc", strings.NewReader(`{"status":"em_manutencao"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", svc.statusID)
	assert.Equal(t, "em_manutencao", svc.status)
}

func TestEquipmentUpdateStatusErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"not found", apperrors.ErrNotFound, `{"status":"concluido"}`, http.StatusNotFound},
		{"invalid status", apperrors.Validation(nil), `{"status":"x"}`, http.StatusBadRequest},
		{"malformed json", nil, `{"status":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(NewEquipmentController(&reportServiceMock{statusErr: tc.err}, nil, 5<<20))
			req := httptest.NewRequest(http.MethodPut, "/equipments/unknown", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestEquipmentDeleteAndGet(t *testing.T) {
	svc := &reportServiceMock{}
	r := newEngine(NewEquipmentController(svc, nil, 5<<20))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/equipments/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	svc.deleteErr = apperrors.ErrNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/equipments/abc", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/equipments/abc", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		pinger pinger
		want   string
	}{
		{stubPinger{}, "connected"},
		{stubPinger{err: errors.New("down")}, "disconnected"},
	} {
		r := gin.New()
		r.GET("/health", NewHealthController(tc.pinger).Health)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, tc.want, body["database"])
		assert.NotEmpty(t, body["timestamp"])
	}
}
