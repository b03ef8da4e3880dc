package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Batch is a received lot of an inventory item
type Batch struct {
	ID           int64      `db:"id" json:"id"`
	ItemID       int64      `db:"inventory_item_id" json:"inventory_item_id"`
	ItemName     string     `db:"item_name" json:"item_name,omitempty"`
	BatchNumber  string     `db:"batch_number" json:"batch_number"`
	Quantity     int        `db:"quantity" json:"quantity"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Supplier     string     `db:"supplier" json:"supplier"`
	ReceivedDate time.Time  `db:"received_date" json:"received_date"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

const batchSelect = `
	SELECT b.id, b.inventory_item_id, COALESCE(i.name, '') AS item_name, b.batch_number, b.quantity,
		b.expiry_date, b.supplier, b.received_date, b.is_active, b.created_at, b.updated_at
	FROM batches b
	LEFT JOIN inventory_items i ON i.id = b.inventory_item_id`

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts an active batch
func (r *BatchRepository) Create(ctx context.Context, b *Batch) error {
	query := `
		INSERT INTO batches (
			inventory_item_id, batch_number, quantity, expiry_date, supplier, received_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING id, is_active, created_at, updated_at
	`
	return r.db.Q(ctx).QueryRowxContext(ctx, query,
		b.ItemID, b.BatchNumber, b.Quantity, b.ExpiryDate, b.Supplier, b.ReceivedDate,
	).Scan(&b.ID, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID gets a batch by ID regardless of its active flag
func (r *BatchRepository) GetByID(ctx context.Context, id int64) (*Batch, error) {
	return r.get(ctx, batchSelect+` WHERE b.id = $1`, id)
}

// GetForUpdate gets a batch and row-locks it until the surrounding transaction ends
func (r *BatchRepository) GetForUpdate(ctx context.Context, id int64) (*Batch, error) {
	return r.get(ctx, batchSelect+` WHERE b.id = $1 FOR UPDATE OF b`, id)
}

func (r *BatchRepository) get(ctx context.Context, query string, args ...interface{}) (*Batch, error) {
	var b Batch
	if err := r.db.Q(ctx).GetContext(ctx, &b, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &b, nil
}

// ListByItem lists active batches of an item, earliest expiry first
func (r *BatchRepository) ListByItem(ctx context.Context, itemID int64) ([]*Batch, error) {
	return r.list(ctx, batchSelect+`
		WHERE b.inventory_item_id = $1 AND b.is_active = true
		ORDER BY b.expiry_date NULLS LAST, b.id`, itemID)
}

// ListByItems lists active batches for several items at once
func (r *BatchRepository) ListByItems(ctx context.Context, itemIDs []int64) (map[int64][]*Batch, error) {
	out := make(map[int64][]*Batch, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(batchSelect+`
		WHERE b.inventory_item_id IN (?) AND b.is_active = true
		ORDER BY b.expiry_date NULLS LAST, b.id`, itemIDs)
	if err != nil {
		return nil, err
	}

	batches, err := r.list(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		out[b.ItemID] = append(out[b.ItemID], b)
	}
	return out, nil
}

// ListExpiringBefore lists active batches whose expiry is on or before the cutoff.
// Batches of deactivated items are included; item deletion does not cascade.
func (r *BatchRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*Batch, error) {
	return r.list(ctx, batchSelect+`
		WHERE b.is_active = true
			AND b.expiry_date IS NOT NULL AND b.expiry_date <= $1
		ORDER BY b.expiry_date, b.id`, cutoff)
}

func (r *BatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*Batch, error) {
	batches := []*Batch{}
	if err := r.db.Q(ctx).SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, err
	}
	return batches, nil
}

// Update writes the mutable batch fields
func (r *BatchRepository) Update(ctx context.Context, b *Batch) error {
	query := `
		UPDATE batches SET
			quantity = $2, expiry_date = $3, supplier = $4, received_date = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		b.ID, b.Quantity, b.ExpiryDate, b.Supplier, b.ReceivedDate,
	).Scan(&b.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound("batch")
	}
	return err
}

// Deactivate marks a batch disposed
func (r *BatchRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE batches SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(result, "batch")
}

// SumActive returns the total quantity of an item's active batches
func (r *BatchRepository) SumActive(ctx context.Context, itemID int64) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(quantity), 0) FROM batches WHERE inventory_item_id = $1 AND is_active = true`
	if err := r.db.Q(ctx).GetContext(ctx, &total, query, itemID); err != nil {
		return 0, err
	}
	return total, nil
}

// NumberExists reports whether a batch number is taken
func (r *BatchRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := r.db.Q(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM batches WHERE batch_number = $1)`, number); err != nil {
		return false, err
	}
	return exists, nil
}
