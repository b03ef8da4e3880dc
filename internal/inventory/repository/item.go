package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// InventoryItem represents a stocked item. QuantityInStock is the cached
// sum of the item's active batches.
type InventoryItem struct {
	ID              int64           `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	CategoryID      int64           `db:"category_id" json:"category_id"`
	CategoryName    string          `db:"category_name" json:"category_name"`
	Description     string          `db:"description" json:"description"`
	QuantityInStock int             `db:"quantity_in_stock" json:"quantity_in_stock"`
	MinStockLevel   int             `db:"min_stock_level" json:"min_stock_level"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	ReorderLevel    int             `db:"reorder_level" json:"reorder_level"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	Batches []*Batch `db:"-" json:"batches,omitempty"`
}

// AggregateDrift is an item whose cached quantity disagrees with its batches
type AggregateDrift struct {
	ItemID     int64  `db:"item_id" json:"item_id"`
	ItemName   string `db:"item_name" json:"item_name"`
	Cached     int    `db:"cached" json:"cached"`
	BatchTotal int    `db:"batch_total" json:"batch_total"`
}

const itemSelect = `
	SELECT i.id, i.name, i.category_id, COALESCE(c.name, '') AS category_name, i.description,
		i.quantity_in_stock, i.min_stock_level, i.unit_price, i.reorder_level, i.is_active,
		i.created_at, i.updated_at
	FROM inventory_items i
	LEFT JOIN categories c ON c.id = i.category_id`

// ItemRepository handles item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts an item
func (r *ItemRepository) Create(ctx context.Context, item *InventoryItem) error {
	query := `
		INSERT INTO inventory_items (
			name, category_id, description, quantity_in_stock, min_stock_level,
			unit_price, reorder_level, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING id, is_active, created_at, updated_at
	`
	return r.db.Q(ctx).QueryRowxContext(ctx, query,
		item.Name, item.CategoryID, item.Description, item.QuantityInStock,
		item.MinStockLevel, item.UnitPrice, item.ReorderLevel,
	).Scan(&item.ID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
}

// GetByID gets an item by ID regardless of its active flag
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*InventoryItem, error) {
	return r.get(ctx, itemSelect+` WHERE i.id = $1`, id)
}

// GetForUpdate gets an item and row-locks it until the surrounding transaction ends
func (r *ItemRepository) GetForUpdate(ctx context.Context, id int64) (*InventoryItem, error) {
	return r.get(ctx, itemSelect+` WHERE i.id = $1 FOR UPDATE OF i`, id)
}

// FindByName returns the item with the exact name, preferring an active one, or nil
func (r *ItemRepository) FindByName(ctx context.Context, name string) (*InventoryItem, error) {
	item, err := r.get(ctx, itemSelect+` WHERE i.name = $1 ORDER BY i.is_active DESC, i.id LIMIT 1`, name)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	return item, err
}

func (r *ItemRepository) get(ctx context.Context, query string, args ...interface{}) (*InventoryItem, error) {
	var item InventoryItem
	if err := r.db.Q(ctx).GetContext(ctx, &item, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("inventory item")
		}
		return nil, err
	}
	return &item, nil
}

// ListActive returns active items, newest first
func (r *ItemRepository) ListActive(ctx context.Context) ([]*InventoryItem, error) {
	return r.list(ctx, itemSelect+` WHERE i.is_active = true ORDER BY i.created_at DESC, i.id DESC`)
}

// ListAtOrBelowMinStock returns active items with quantity_in_stock <= min_stock_level
func (r *ItemRepository) ListAtOrBelowMinStock(ctx context.Context) ([]*InventoryItem, error) {
	return r.list(ctx, itemSelect+` WHERE i.is_active = true AND i.quantity_in_stock <= i.min_stock_level ORDER BY i.name`)
}

// ListAtOrBelowReorderLevel returns active items with quantity_in_stock <= reorder_level
func (r *ItemRepository) ListAtOrBelowReorderLevel(ctx context.Context) ([]*InventoryItem, error) {
	return r.list(ctx, itemSelect+` WHERE i.is_active = true AND i.quantity_in_stock <= i.reorder_level ORDER BY i.name`)
}

func (r *ItemRepository) list(ctx context.Context, query string, args ...interface{}) ([]*InventoryItem, error) {
	items := []*InventoryItem{}
	if err := r.db.Q(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// Update writes the editable fields of an item. The cached quantity is
// written only by SetQuantity.
func (r *ItemRepository) Update(ctx context.Context, item *InventoryItem) error {
	query := `
		UPDATE inventory_items SET
			name = $2, category_id = $3, description = $4,
			min_stock_level = $5, unit_price = $6, reorder_level = $7, is_active = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING quantity_in_stock, updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		item.ID, item.Name, item.CategoryID, item.Description,
		item.MinStockLevel, item.UnitPrice, item.ReorderLevel, item.IsActive,
	).Scan(&item.QuantityInStock, &item.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound("inventory item")
	}
	return err
}

// SetQuantity overwrites the cached quantity
func (r *ItemRepository) SetQuantity(ctx context.Context, id int64, quantity int) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE inventory_items SET quantity_in_stock = $2, updated_at = NOW() WHERE id = $1`, id, quantity)
	if err != nil {
		return err
	}
	return expectOne(result, "inventory item")
}

// Deactivate sets is_active = false without touching batches
func (r *ItemRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE inventory_items SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(result, "inventory item")
}

// ListDrift returns items whose cached quantity differs from the sum of their active batches.
// Items with no batches at all are skipped; their quantity may come from direct entry.
func (r *ItemRepository) ListDrift(ctx context.Context, itemID *int64) ([]*AggregateDrift, error) {
	query := `
		SELECT i.id AS item_id, i.name AS item_name, i.quantity_in_stock AS cached,
			COALESCE(SUM(b.quantity) FILTER (WHERE b.is_active), 0) AS batch_total
		FROM inventory_items i
		JOIN batches b ON b.inventory_item_id = i.id
		WHERE ($1::bigint IS NULL OR i.id = $1)
		GROUP BY i.id, i.name, i.quantity_in_stock
		HAVING i.quantity_in_stock <> COALESCE(SUM(b.quantity) FILTER (WHERE b.is_active), 0)
		ORDER BY i.id
	`
	drift := []*AggregateDrift{}
	if err := r.db.Q(ctx).SelectContext(ctx, &drift, query, itemID); err != nil {
		return nil, err
	}
	return drift, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectOne(result rowsAffecter, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
