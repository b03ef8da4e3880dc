package handler

import (
	"net/http"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// DefaultMaxUploadBytes caps spreadsheet uploads when no limit is configured
const DefaultMaxUploadBytes int64 = 10 << 20

// ImportHandler accepts spreadsheet uploads
type ImportHandler struct {
	importer       *service.Importer
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer *service.Importer, maxUploadBytes int64, log *logger.Logger) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{
		importer:       importer,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// Upload imports the multipart "file" field. Row failures are reported in
// the result; only an unreadable upload fails the request.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httputil.Error(w, r, errors.BadRequest("upload must be a multipart form no larger than the configured limit"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, r, errors.Validation(map[string]string{"file": "this field is required"}))
		return
	}
	defer file.Close()

	result, err := h.importer.Import(r.Context(), file, header.Filename)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	h.logger.Info().
		Str("file", header.Filename).
		Int("succeeded", len(result.Success)).
		Int("failed", len(result.Errors)).
		Msg("spreadsheet imported")

	httputil.JSON(w, http.StatusOK, result)
}
