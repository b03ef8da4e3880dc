package handler

import (
	"net/http"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// AggregateHandler exposes the quantity consistency checks
type AggregateHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewAggregateHandler creates a new aggregate handler
func NewAggregateHandler(svc *service.InventoryService, log *logger.Logger) *AggregateHandler {
	return &AggregateHandler{service: svc, logger: log}
}

// Verify compares an item's cached quantity with its active batches
func (h *AggregateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	check, err := h.service.VerifyAggregate(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, check)
}

// Repair rewrites every drifted item and returns what was changed
func (h *AggregateHandler) Repair(w http.ResponseWriter, r *http.Request) {
	drift, err := h.service.RepairAggregates(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	h.logger.Info().Int("repaired", len(drift)).Str("admin", httputil.GetAdminEmail(r.Context())).Msg("aggregates repaired")
	httputil.JSON(w, http.StatusOK, drift)
}
