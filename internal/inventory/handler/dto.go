package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medstock/medstock-backend/internal/inventory/service"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// dateLayouts are the accepted date encodings, most specific first
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate parses an optional date field. Empty means absent.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*raw)); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.Validation(map[string]string{field: "must be a date (YYYY-MM-DD)"})
}

// ItemRequest is the body of item create and update. quantity_in_stock is the
// opening stock on create and is ignored on update.
type ItemRequest struct {
	Name            string          `json:"name" validate:"required,max=255"`
	CategoryID      int64           `json:"category_id" validate:"required,gt=0"`
	Description     string          `json:"description"`
	QuantityInStock *int            `json:"quantity_in_stock" validate:"omitempty,gte=0"`
	MinStockLevel   int             `json:"min_stock_level" validate:"gte=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ReorderLevel    int             `json:"reorder_level" validate:"gte=0"`
}

func (r ItemRequest) input() service.ItemInput {
	in := service.ItemInput{
		Name:          strings.TrimSpace(r.Name),
		CategoryID:    r.CategoryID,
		Description:   r.Description,
		MinStockLevel: r.MinStockLevel,
		UnitPrice:     r.UnitPrice,
		ReorderLevel:  r.ReorderLevel,
	}
	if r.QuantityInStock != nil {
		in.QuantityInStock = *r.QuantityInStock
	}
	return in
}

// ReduceStockRequest disburses stock to a patient
type ReduceStockRequest struct {
	Quantity    int    `json:"quantity"`
	PatientName string `json:"patient_name" validate:"max=255"`
}

// BatchRequest is the body of a stock receipt
type BatchRequest struct {
	ItemID       int64   `json:"inventory_item_id" validate:"required,gt=0"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
	ExpiryDate   *string `json:"expiry_date"`
	Supplier     string  `json:"supplier" validate:"max=255"`
	ReceivedDate *string `json:"received_date"`
}

func (r BatchRequest) input() (service.AddBatchInput, error) {
	expiry, err := parseDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return service.AddBatchInput{}, err
	}
	received, err := parseDate("received_date", r.ReceivedDate)
	if err != nil {
		return service.AddBatchInput{}, err
	}
	return service.AddBatchInput{
		ItemID:       r.ItemID,
		Quantity:     r.Quantity,
		ExpiryDate:   expiry,
		Supplier:     r.Supplier,
		ReceivedDate: received,
	}, nil
}

// BatchPatchRequest corrects a batch; omitted fields are left unchanged
type BatchPatchRequest struct {
	Quantity     *int    `json:"quantity" validate:"omitempty,gte=0"`
	ExpiryDate   *string `json:"expiry_date"`
	Supplier     *string `json:"supplier" validate:"omitempty,max=255"`
	ReceivedDate *string `json:"received_date"`
}

func (r BatchPatchRequest) patch() (service.BatchPatch, error) {
	expiry, err := parseDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return service.BatchPatch{}, err
	}
	received, err := parseDate("received_date", r.ReceivedDate)
	if err != nil {
		return service.BatchPatch{}, err
	}
	return service.BatchPatch{
		Quantity:     r.Quantity,
		ExpiryDate:   expiry,
		Supplier:     r.Supplier,
		ReceivedDate: received,
	}, nil
}

// CategoryRequest is the body of category create and update
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// TransactionRequest records a manual log entry
type TransactionRequest struct {
	ItemID         int64   `json:"inventory_item_id" validate:"required,gt=0"`
	BatchID        *int64  `json:"batch_id" validate:"omitempty,gt=0"`
	Type           string  `json:"transaction_type" validate:"required"`
	QuantityChange int     `json:"quantity_change"`
	Remarks        string  `json:"remarks"`
	PatientName    *string `json:"patient_name" validate:"omitempty,max=255"`
}

// NotificationRequest raises a notification by hand
type NotificationRequest struct {
	Type         string  `json:"notification_type" validate:"required"`
	BatchID      *int64  `json:"batch_id" validate:"omitempty,gt=0"`
	ItemID       *int64  `json:"inventory_item_id" validate:"omitempty,gt=0"`
	QuantityLeft *int    `json:"quantity_left" validate:"omitempty,gte=0"`
	ExpiryDate   *string `json:"expiry_date"`
	Title        string  `json:"title" validate:"required,max=255"`
	Message      string  `json:"message"`
}

// MarkAllSeenRequest selects which notifications to close
type MarkAllSeenRequest struct {
	Type string `json:"type"`
}
