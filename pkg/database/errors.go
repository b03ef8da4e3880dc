package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"

	"github.com/medstock/medstock-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23514":
		return mapCheckConstraint(pqErr)

	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	case "23503":
		return errors.BadRequest("referenced record does not exist")

	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// IsUniqueViolation reports whether err is a unique constraint violation on the named constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_nonnegative"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})

	case strings.Contains(constraint, "min_stock_nonnegative"):
		return errors.Validation(map[string]string{
			"min_stock_level": "must not be negative",
		})

	case strings.Contains(constraint, "unit_price_nonnegative"):
		return errors.Validation(map[string]string{
			"unit_price": "must not be negative",
		})

	case strings.Contains(constraint, "reorder_nonnegative"):
		return errors.Validation(map[string]string{
			"reorder_level": "must not be negative",
		})

	case strings.Contains(constraint, "type_valid"):
		return errors.Validation(map[string]string{
			"type": "unsupported type",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "categories_name"):
		return "a category with this name already exists"
	case strings.Contains(constraint, "batch_number"):
		return "a batch with this batch number already exists"
	case strings.Contains(constraint, "admins_email"):
		return "an admin with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
