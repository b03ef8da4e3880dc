package handler

import (
	"net/http"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// TransactionHandler exposes the transaction log
type TransactionHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(svc *service.InventoryService, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{service: svc, logger: log}
}

// List returns the whole log, newest first
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListTransactions(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, txs)
}

// Create appends a manual entry to the log
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	tx, err := h.service.RecordTransaction(r.Context(), service.RecordTransactionInput{
		ItemID:         req.ItemID,
		BatchID:        req.BatchID,
		Type:           req.Type,
		QuantityChange: req.QuantityChange,
		Remarks:        req.Remarks,
		PatientName:    req.PatientName,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, tx)
}
