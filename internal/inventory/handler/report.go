package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/httputil"
	"github.com/medstock/medstock-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves period reports
type ReportHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.InventoryService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{service: svc, logger: log}
}

func reportRequest(r *http.Request) (service.ReportRequest, error) {
	year, err := httputil.IntQuery(r, "year", 0)
	if err != nil {
		return service.ReportRequest{}, err
	}
	month, err := httputil.IntQuery(r, "month", 0)
	if err != nil {
		return service.ReportRequest{}, err
	}
	return service.ReportRequest{
		Type:  r.URL.Query().Get("type"),
		Year:  year,
		Month: month,
	}, nil
}

// Get builds a monthly or yearly report
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := reportRequest(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	report, err := h.service.Report(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Export renders the report as an xlsx workbook
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, err := reportRequest(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	report, err := h.service.Report(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	// Render fully before writing headers so a failure still gets a JSON error
	var buf bytes.Buffer
	if err := service.WriteReportXLSX(&buf, report); err != nil {
		httputil.Error(w, r, err)
		return
	}

	name := fmt.Sprintf("report-%s-%d.xlsx", report.Type, req.Year)
	if report.Type == service.ReportMonthly {
		name = fmt.Sprintf("report-%s-%d-%02d.xlsx", report.Type, req.Year, req.Month)
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
