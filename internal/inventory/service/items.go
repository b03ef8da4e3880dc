package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Item operations

// ItemInput holds the editable item fields. QuantityInStock is the opening
// stock and only applies on create.
type ItemInput struct {
	Name            string
	CategoryID      int64
	Description     string
	QuantityInStock int
	MinStockLevel   int
	UnitPrice       decimal.Decimal
	ReorderLevel    int
}

func (in ItemInput) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "is required"
	}
	if in.QuantityInStock < 0 {
		details["quantity_in_stock"] = "must be 0 or greater"
	}
	if in.MinStockLevel < 0 {
		details["min_stock_level"] = "must be 0 or greater"
	}
	if in.ReorderLevel < 0 {
		details["reorder_level"] = "must be 0 or greater"
	}
	if in.UnitPrice.IsNegative() {
		details["unit_price"] = "must be 0 or greater"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// DistinctItem is the compact item shape used by pickers
type DistinctItem struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CategoryName string     `json:"category_name"`
	Batches      []BatchRef `json:"batches"`
}

// BatchRef identifies a batch
type BatchRef struct {
	ID          int64  `json:"id"`
	BatchNumber string `json:"batch_number"`
}

// CreateItem creates an item and logs its initial quantity
func (s *InventoryService) CreateItem(ctx context.Context, in ItemInput) (*repository.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := &repository.InventoryItem{
		Name:            strings.TrimSpace(in.Name),
		CategoryID:      in.CategoryID,
		Description:     in.Description,
		QuantityInStock: in.QuantityInStock,
		MinStockLevel:   in.MinStockLevel,
		UnitPrice:       in.UnitPrice,
		ReorderLevel:    in.ReorderLevel,
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		category, err := s.repos.Categories.GetByID(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		item.CategoryName = category.Name

		if err := s.repos.Items.Create(ctx, item); err != nil {
			return err
		}
		return s.appendTransaction(ctx, item.ID, nil, repository.TransactionAdd, item.QuantityInStock, "New item added", nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("item_id", item.ID).Str("name", item.Name).Msg("item created")
	return item, nil
}

// GetItem gets an item with its active batches
func (s *InventoryService) GetItem(ctx context.Context, id int64) (*repository.InventoryItem, error) {
	item, err := s.repos.Items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Batches, err = s.repos.Batches.ListByItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems lists active items, newest first, with their active batches
func (s *InventoryService) ListItems(ctx context.Context) ([]*repository.InventoryItem, error) {
	items, err := s.repos.Items.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.attachBatches(ctx, items)
}

// ListDistinctItems lists active items with just their batch numbers
func (s *InventoryService) ListDistinctItems(ctx context.Context) ([]DistinctItem, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DistinctItem, 0, len(items))
	for _, item := range items {
		d := DistinctItem{
			ID:           item.ID,
			Name:         item.Name,
			CategoryName: item.CategoryName,
			Batches:      make([]BatchRef, 0, len(item.Batches)),
		}
		for _, b := range item.Batches {
			d.Batches = append(d.Batches, BatchRef{ID: b.ID, BatchNumber: b.BatchNumber})
		}
		out = append(out, d)
	}
	return out, nil
}

// UpdateItem writes the item's descriptive fields and thresholds. Stock is
// left alone; it changes only through batches and ReduceStock.
func (s *InventoryService) UpdateItem(ctx context.Context, id int64, in ItemInput) (*repository.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item *repository.InventoryItem
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repos.Items.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return errors.NotFound("inventory item")
		}

		if in.CategoryID != item.CategoryID {
			category, err := s.repos.Categories.GetByID(ctx, in.CategoryID)
			if err != nil {
				return err
			}
			item.CategoryName = category.Name
		}

		item.Name = strings.TrimSpace(in.Name)
		item.CategoryID = in.CategoryID
		item.Description = in.Description
		item.MinStockLevel = in.MinStockLevel
		item.UnitPrice = in.UnitPrice
		item.ReorderLevel = in.ReorderLevel

		if err := s.repos.Items.Update(ctx, item); err != nil {
			return err
		}
		return s.appendTransaction(ctx, item.ID, nil, repository.TransactionUpdate, 0, "Item updated", nil)
	})
	if err != nil {
		return nil, err
	}

	s.requestScan(ctx, "item.updated", item.ID)
	return item, nil
}

// SoftDeleteItem deactivates an item. Its batches keep their own active flags.
func (s *InventoryService) SoftDeleteItem(ctx context.Context, id int64) error {
	var item *repository.InventoryItem
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repos.Items.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return errors.NotFound("inventory item")
		}
		if err := s.repos.Items.Deactivate(ctx, id); err != nil {
			return err
		}
		item.IsActive = false
		return s.appendTransaction(ctx, id, nil, repository.TransactionDelete, -item.QuantityInStock, "Item soft deleted", nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("item_id", id).Msg("item soft deleted")
	s.publisher.PublishItemDeleted(ctx, item)
	return nil
}

// LowStockItems lists active items at or below their minimum stock level
func (s *InventoryService) LowStockItems(ctx context.Context) ([]*repository.InventoryItem, error) {
	items, err := s.repos.Items.ListAtOrBelowMinStock(ctx)
	if err != nil {
		return nil, err
	}
	return s.attachBatches(ctx, items)
}

func (s *InventoryService) attachBatches(ctx context.Context, items []*repository.InventoryItem) ([]*repository.InventoryItem, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	batches, err := s.repos.Batches.ListByItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.Batches = batches[item.ID]
		if item.Batches == nil {
			item.Batches = []*repository.Batch{}
		}
	}
	return items, nil
}

// Transaction log

// ItemHistory lists an item's disbursements, newest first
func (s *InventoryService) ItemHistory(ctx context.Context, itemID int64) ([]*repository.Transaction, error) {
	if _, err := s.repos.Items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repos.Transactions.ListByItemAndType(ctx, itemID, repository.TransactionRemove)
}

// ListTransactions lists the whole log, newest first
func (s *InventoryService) ListTransactions(ctx context.Context) ([]*repository.Transaction, error) {
	return s.repos.Transactions.List(ctx)
}

// RecordTransactionInput is a manual log entry
type RecordTransactionInput struct {
	ItemID         int64
	BatchID        *int64
	Type           string
	QuantityChange int
	Remarks        string
	PatientName    *string
}

// RecordTransaction appends a manual row to the log. Stock is not adjusted.
func (s *InventoryService) RecordTransaction(ctx context.Context, in RecordTransactionInput) (*repository.Transaction, error) {
	switch in.Type {
	case repository.TransactionAdd, repository.TransactionRemove, repository.TransactionUpdate,
		repository.TransactionDispose, repository.TransactionDelete:
	default:
		return nil, errors.Validation(map[string]string{"transaction_type": "must be one of ADD REMOVE UPDATE DISPOSE DELETE"})
	}

	tx := &repository.Transaction{
		ItemID:         in.ItemID,
		BatchID:        in.BatchID,
		Type:           in.Type,
		QuantityChange: in.QuantityChange,
		Date:           s.now(),
		Remarks:        in.Remarks,
		PatientName:    in.PatientName,
	}
	if _, err := s.repos.Items.GetByID(ctx, in.ItemID); err != nil {
		return nil, err
	}
	if err := s.repos.Transactions.Append(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Categories

// CreateCategory creates a category
func (s *InventoryService) CreateCategory(ctx context.Context, name, description string) (*repository.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation(map[string]string{"name": "is required"})
	}
	c := &repository.Category{Name: name, Description: description}
	if err := s.repos.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories lists active categories
func (s *InventoryService) ListCategories(ctx context.Context) ([]*repository.Category, error) {
	return s.repos.Categories.List(ctx)
}

// GetCategory gets a category by ID
func (s *InventoryService) GetCategory(ctx context.Context, id int64) (*repository.Category, error) {
	return s.repos.Categories.GetByID(ctx, id)
}

// UpdateCategory renames or re-describes a category
func (s *InventoryService) UpdateCategory(ctx context.Context, id int64, name, description string) (*repository.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation(map[string]string{"name": "is required"})
	}
	c, err := s.repos.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Description = description
	if err := s.repos.Categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory soft deletes a category
func (s *InventoryService) DeleteCategory(ctx context.Context, id int64) error {
	return s.repos.Categories.SoftDelete(ctx, id)
}
