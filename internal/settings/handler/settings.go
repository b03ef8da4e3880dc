package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medstock/medstock-backend/internal/settings/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// SettingsHandler handles settings endpoints
type SettingsHandler struct {
	service *service.SettingsService
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc *service.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{service: svc, logger: log}
}

// Mount registers the settings routes
func (h *SettingsHandler) Mount(r chi.Router) {
	r.Get("/get", h.Get)
	r.Post("/save", h.Save)
}

// Get returns every setting
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetAll(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, settings)
}

// Save upserts the posted key/value object
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	settings, err := h.service.Save(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, settings)
}
