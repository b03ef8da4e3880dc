package handler

import (
	"net/http"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// BatchHandler handles batch endpoints
type BatchHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.InventoryService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

// ListByItem lists the active batches of an item
func (h *BatchHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batches, err := h.service.ListBatches(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Create receives stock into a new batch
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	in, err := req.input()
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batch, err := h.service.AddBatch(r.Context(), in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, batch)
}

// Update corrects a batch
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req BatchPatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batch, err := h.service.UpdateBatch(r.Context(), id, patch)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Dispose retires a batch and removes its quantity from stock
func (h *BatchHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batch, err := h.service.DisposeBatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Expiring lists active batches expiring within ?days= (default 30)
func (h *BatchHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days, err := httputil.IntQuery(r, "days", service.DefaultExpiryWindowDays)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	batches, err := h.service.ExpiringBatches(r.Context(), days)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}
