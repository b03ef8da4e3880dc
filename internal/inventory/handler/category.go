package handler

import (
	"net/http"
	"strings"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(svc *service.InventoryService, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: log}
}

// List lists categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, categories)
}

// Get gets a category by ID
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, category)
}

// Create creates a category
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, category)
}

// Update renames or redescribes a category
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req CategoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), id, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, category)
}

// Delete deletes a category
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}
