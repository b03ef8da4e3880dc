package repository

import (
	"context"
	"time"

	"github.com/medstock/medstock-backend/pkg/database"
)

// Transaction types
const (
	TransactionAdd     = "ADD"
	TransactionRemove  = "REMOVE"
	TransactionUpdate  = "UPDATE"
	TransactionDispose = "DISPOSE"
	TransactionDelete  = "DELETE"
)

// Transaction is an append-only audit row. Rows are never updated or deleted.
type Transaction struct {
	ID             int64     `db:"id" json:"id"`
	ItemID         int64     `db:"inventory_item_id" json:"inventory_item_id"`
	BatchID        *int64    `db:"batch_id" json:"batch_id,omitempty"`
	Type           string    `db:"transaction_type" json:"transaction_type"`
	QuantityChange int       `db:"quantity_change" json:"quantity_change"`
	Date           time.Time `db:"date" json:"date"`
	Remarks        string    `db:"remarks" json:"remarks"`
	PatientName    *string   `db:"patient_name" json:"patient_name,omitempty"`

	// Joined for listings and reports
	ItemName     string  `db:"item_name" json:"item_name,omitempty"`
	ItemQuantity int     `db:"item_quantity" json:"item_quantity,omitempty"`
	BatchNumber  *string `db:"batch_number" json:"batch_number,omitempty"`
}

const transactionSelect = `
	SELECT t.id, t.inventory_item_id, t.batch_id, t.transaction_type, t.quantity_change, t.date,
		t.remarks, t.patient_name, COALESCE(i.name, '') AS item_name,
		COALESCE(i.quantity_in_stock, 0) AS item_quantity, b.batch_number
	FROM transactions t
	LEFT JOIN inventory_items i ON i.id = t.inventory_item_id
	LEFT JOIN batches b ON b.id = t.batch_id`

// TransactionRepository appends to and reads the transaction log
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append writes one transaction row
func (r *TransactionRepository) Append(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (
			inventory_item_id, batch_id, transaction_type, quantity_change, date, remarks, patient_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.Q(ctx).QueryRowxContext(ctx, query,
		t.ItemID, t.BatchID, t.Type, t.QuantityChange, t.Date, t.Remarks, t.PatientName,
	).Scan(&t.ID)
}

// List returns every transaction, newest first
func (r *TransactionRepository) List(ctx context.Context) ([]*Transaction, error) {
	return r.list(ctx, transactionSelect+` ORDER BY t.date DESC, t.id DESC`)
}

// ListByItemAndType returns an item's transactions of one type, newest first
func (r *TransactionRepository) ListByItemAndType(ctx context.Context, itemID int64, txType string) ([]*Transaction, error) {
	return r.list(ctx, transactionSelect+`
		WHERE t.inventory_item_id = $1 AND t.transaction_type = $2
		ORDER BY t.date DESC, t.id DESC`, itemID, txType)
}

// ListBetween returns transactions dated within [start, end], oldest first
func (r *TransactionRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*Transaction, error) {
	return r.list(ctx, transactionSelect+`
		WHERE t.date >= $1 AND t.date <= $2
		ORDER BY t.date, t.id`, start, end)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*Transaction, error) {
	txs := []*Transaction{}
	if err := r.db.Q(ctx).SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, err
	}
	return txs, nil
}
