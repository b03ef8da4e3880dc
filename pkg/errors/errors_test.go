package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/medstock/medstock-backend/pkg/errors"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *apperrors.AppError
		sentinel error
		code     string
		status   int
	}{
		{"not found", apperrors.NotFound("batch"), apperrors.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"validation", apperrors.Validation(map[string]string{"quantity": "must be positive"}), apperrors.ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest},
		{"invalid", apperrors.Invalid("Year is required for yearly reports."), apperrors.ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest},
		{"insufficient stock", apperrors.InsufficientStock("Paracetamol", 3, 5), apperrors.ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusConflict},
		{"dependency", apperrors.Dependency("could not read workbook", errors.New("zip: not a valid zip file")), apperrors.ErrDependency, "DEPENDENCY_ERROR", http.StatusUnprocessableEntity},
		{"credentials", apperrors.InvalidCredentials(), apperrors.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"conflict", apperrors.Conflict("category already exists"), apperrors.ErrConflict, "CONFLICT", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
		})
	}
}

func TestInsufficientStock_Details(t *testing.T) {
	err := apperrors.InsufficientStock("Paracetamol", 3, 5)

	assert.Equal(t, "3", err.Details["available"])
	assert.Equal(t, "5", err.Details["requested"])
	assert.Contains(t, err.Message, "Paracetamol")
}

func TestAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("reduce stock: %w", apperrors.NotFound("inventory item"))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(wrapped, &appErr))
	assert.Equal(t, "inventory item not found", appErr.Message)
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperrors.Wrap(cause, "INTERNAL_ERROR", "failed to load items", http.StatusInternalServerError)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load items: connection refused", err.Error())
}
