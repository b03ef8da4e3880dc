package handler

import (
	"net/http"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	service *service.NotificationService
	logger  *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{service: svc, logger: log}
}

// List returns unseen notifications. Without ?type= a scan runs first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list interface{}
		err  error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		list, err = h.service.ListFiltered(r.Context(), t)
	} else {
		list, err = h.service.List(r.Context())
	}
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, list)
}

// MarkSeen closes one notification
func (h *NotificationHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	n, err := h.service.MarkSeen(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, n)
}

// MarkAllSeen closes every unseen notification of a type, or all of them
func (h *NotificationHandler) MarkAllSeen(w http.ResponseWriter, r *http.Request) {
	var req MarkAllSeenRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, r, err)
			return
		}
	}

	count, err := h.service.MarkAllSeen(r.Context(), req.Type)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]int64{"updated": count})
}

// Create raises a notification by hand
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	expiry, err := parseDate("expiry_date", req.ExpiryDate)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	n, err := h.service.Create(r.Context(), service.CreateNotificationInput{
		Type:         req.Type,
		BatchID:      req.BatchID,
		ItemID:       req.ItemID,
		QuantityLeft: req.QuantityLeft,
		ExpiryDate:   expiry,
		Title:        req.Title,
		Message:      req.Message,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, n)
}
