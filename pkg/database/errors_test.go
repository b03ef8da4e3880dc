package database_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock-backend/pkg/database"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		detail  string
	}{
		{
			name:    "duplicate category",
			err:     &pq.Error{Code: "23505", Constraint: "categories_name_key"},
			status:  http.StatusConflict,
			message: "a category with this name already exists",
		},
		{
			name:    "duplicate batch number",
			err:     fmt.Errorf("insert batch: %w", &pq.Error{Code: "23505", Constraint: "batches_batch_number_key"}),
			status:  http.StatusConflict,
			message: "a batch with this batch number already exists",
		},
		{
			name:   "negative stock",
			err:    &pq.Error{Code: "23514", Constraint: "inventory_items_quantity_nonnegative"},
			status: http.StatusBadRequest,
			detail: "quantity",
		},
		{
			name:   "negative price",
			err:    &pq.Error{Code: "23514", Constraint: "inventory_items_unit_price_nonnegative"},
			status: http.StatusBadRequest,
			detail: "unit_price",
		},
		{
			name:    "missing category",
			err:     &pq.Error{Code: "23503"},
			status:  http.StatusBadRequest,
			message: "referenced record does not exist",
		},
		{
			name:   "not null",
			err:    &pq.Error{Code: "23502", Column: "name"},
			status: http.StatusBadRequest,
			detail: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := database.MapPQError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.status, appErr.StatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
			if tt.detail != "" {
				assert.Contains(t, appErr.Details, tt.detail)
			}
		})
	}
}

func TestMapPQError_IgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, database.MapPQError(errors.New("plain")))
	assert.Nil(t, database.MapPQError(&pq.Error{Code: "40001"}))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505", Constraint: "batches_batch_number_key"})

	assert.True(t, database.IsUniqueViolation(err, "batches_batch_number_key"))
	assert.True(t, database.IsUniqueViolation(err, ""))
	assert.False(t, database.IsUniqueViolation(err, "categories_name_key"))
	assert.False(t, database.IsUniqueViolation(errors.New("x"), ""))
}
