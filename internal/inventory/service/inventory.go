package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medstock/medstock-backend/internal/inventory/events"
	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

// Repositories bundles the inventory repositories so services can share them
type Repositories struct {
	Items         *repository.ItemRepository
	Batches       *repository.BatchRepository
	Categories    *repository.CategoryRepository
	Transactions  *repository.TransactionRepository
	Notifications *repository.NotificationRepository
}

// NewRepositories creates every inventory repository on one database
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Items:         repository.NewItemRepository(db),
		Batches:       repository.NewBatchRepository(db),
		Categories:    repository.NewCategoryRepository(db),
		Transactions:  repository.NewTransactionRepository(db),
		Notifications: repository.NewNotificationRepository(db),
	}
}

// InventoryService keeps items, batches and the transaction log consistent.
// Every mutating operation runs in a single database transaction that covers
// the entity write, its transaction row and the aggregate recompute.
type InventoryService struct {
	db        *database.DB
	repos     *Repositories
	publisher *events.InventoryEventPublisher
	scans     ScanQueue
	now       func() time.Time
	logger    *logger.Logger
}

// NewInventoryService creates a new inventory service. publisher and scans may be nil.
func NewInventoryService(
	db *database.DB,
	repos *Repositories,
	publisher *events.InventoryEventPublisher,
	scans ScanQueue,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		db:        db,
		repos:     repos,
		publisher: publisher,
		scans:     scans,
		now:       time.Now,
		logger:    log.WithComponent("inventory"),
	}
}

// WithClock replaces the time source, used for batch numbers and log dates
func (s *InventoryService) WithClock(now func() time.Time) *InventoryService {
	s.now = now
	return s
}

// Batch operations

// AddBatchInput describes a stock receipt
type AddBatchInput struct {
	ItemID       int64
	Quantity     int
	ExpiryDate   *time.Time
	Supplier     string
	ReceivedDate *time.Time
}

// BatchPatch holds the batch fields a correction may change; nil means unchanged
type BatchPatch struct {
	Quantity     *int
	ExpiryDate   *time.Time
	Supplier     *string
	ReceivedDate *time.Time
}

// AddBatch receives stock into a new batch and recomputes the item aggregate
func (s *InventoryService) AddBatch(ctx context.Context, in AddBatchInput) (*repository.Batch, error) {
	var (
		batch   *repository.Batch
		itemQty int
	)
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		batch, itemQty, err = s.addBatch(ctx, in, func(string) string { return "New batch added" })
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("item_id", batch.ItemID).
		Str("batch_number", batch.BatchNumber).
		Int("quantity", batch.Quantity).
		Msg("batch added")

	s.publisher.PublishBatchChanged(ctx, messaging.EventBatchAdded, batch, batch.Quantity, itemQty)
	s.requestScan(ctx, "batch.added", batch.ItemID)
	return batch, nil
}

// addBatch must run inside a transaction. remarks builds the ADD row's
// remarks from the generated batch number.
func (s *InventoryService) addBatch(ctx context.Context, in AddBatchInput, remarks func(batchNumber string) string) (*repository.Batch, int, error) {
	if in.Quantity < 0 {
		return nil, 0, errors.Validation(map[string]string{"quantity": "must be 0 or greater"})
	}

	item, err := s.repos.Items.GetForUpdate(ctx, in.ItemID)
	if err != nil {
		return nil, 0, err
	}
	if !item.IsActive {
		return nil, 0, errors.NotFound("inventory item")
	}

	number, err := s.nextBatchNumber(ctx, item.Name)
	if err != nil {
		return nil, 0, err
	}

	received := s.now()
	if in.ReceivedDate != nil {
		received = *in.ReceivedDate
	}

	batch := &repository.Batch{
		ItemID:       item.ID,
		ItemName:     item.Name,
		BatchNumber:  number,
		Quantity:     in.Quantity,
		ExpiryDate:   in.ExpiryDate,
		Supplier:     in.Supplier,
		ReceivedDate: received,
	}
	if err := s.repos.Batches.Create(ctx, batch); err != nil {
		return nil, 0, fmt.Errorf("create batch: %w", err)
	}

	if err := s.appendTransaction(ctx, item.ID, &batch.ID, repository.TransactionAdd, batch.Quantity, remarks(number), nil); err != nil {
		return nil, 0, err
	}

	total, err := s.recompute(ctx, item.ID)
	if err != nil {
		return nil, 0, err
	}
	return batch, total, nil
}

// UpdateBatch applies a correction to an active batch and logs the quantity delta
func (s *InventoryService) UpdateBatch(ctx context.Context, batchID int64, patch BatchPatch) (*repository.Batch, error) {
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be 0 or greater"})
	}

	var (
		batch   *repository.Batch
		delta   int
		itemQty int
	)
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.repos.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !batch.IsActive {
			return errors.Conflict(fmt.Sprintf("Batch %s is disposed and cannot be updated.", batch.BatchNumber))
		}
		if _, err := s.repos.Items.GetForUpdate(ctx, batch.ItemID); err != nil {
			return err
		}

		if patch.Quantity != nil {
			delta = *patch.Quantity - batch.Quantity
			batch.Quantity = *patch.Quantity
		}
		if patch.ExpiryDate != nil {
			batch.ExpiryDate = patch.ExpiryDate
		}
		if patch.Supplier != nil {
			batch.Supplier = *patch.Supplier
		}
		if patch.ReceivedDate != nil {
			batch.ReceivedDate = *patch.ReceivedDate
		}

		if err := s.repos.Batches.Update(ctx, batch); err != nil {
			return err
		}
		if err := s.appendTransaction(ctx, batch.ItemID, &batch.ID, repository.TransactionUpdate, delta, "Batch updated", nil); err != nil {
			return err
		}

		itemQty, err = s.recompute(ctx, batch.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishBatchChanged(ctx, messaging.EventBatchUpdated, batch, delta, itemQty)
	s.requestScan(ctx, "batch.updated", batch.ItemID)
	return batch, nil
}

// DisposeBatch deactivates a batch, debits its quantity from the item and
// closes the batch's open notifications.
func (s *InventoryService) DisposeBatch(ctx context.Context, batchID int64) (*repository.Batch, error) {
	var (
		batch   *repository.Batch
		itemQty int
	)
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.repos.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !batch.IsActive {
			return errors.Conflict(fmt.Sprintf("Batch %s is already disposed.", batch.BatchNumber))
		}

		item, err := s.repos.Items.GetForUpdate(ctx, batch.ItemID)
		if err != nil {
			return err
		}

		if err := s.repos.Batches.Deactivate(ctx, batch.ID); err != nil {
			return err
		}
		batch.IsActive = false

		// Direct debits from reduceStock can leave the cache below the batch
		// quantity; the column may not go negative.
		itemQty = item.QuantityInStock - batch.Quantity
		if itemQty < 0 {
			itemQty = 0
		}
		if err := s.repos.Items.SetQuantity(ctx, item.ID, itemQty); err != nil {
			return err
		}

		remarks := fmt.Sprintf("Batch %s disposed", batch.BatchNumber)
		if err := s.appendTransaction(ctx, item.ID, &batch.ID, repository.TransactionDispose, -batch.Quantity, remarks, nil); err != nil {
			return err
		}

		closed, err := s.repos.Notifications.CloseForBatch(ctx, batch.ID)
		if err != nil {
			return err
		}
		if closed > 0 {
			s.logger.Debug().Int64("batch_id", batch.ID).Int64("closed", closed).Msg("closed batch notifications")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishBatchChanged(ctx, messaging.EventBatchDisposed, batch, -batch.Quantity, itemQty)
	return batch, nil
}

// GetBatch gets a batch by ID
func (s *InventoryService) GetBatch(ctx context.Context, id int64) (*repository.Batch, error) {
	return s.repos.Batches.GetByID(ctx, id)
}

// ListBatches lists an item's active batches
func (s *InventoryService) ListBatches(ctx context.Context, itemID int64) ([]*repository.Batch, error) {
	if _, err := s.repos.Items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repos.Batches.ListByItem(ctx, itemID)
}

// ExpiringBatches lists active batches expiring within the given number of days
func (s *InventoryService) ExpiringBatches(ctx context.Context, days int) ([]*repository.Batch, error) {
	if days < 0 {
		return nil, errors.Invalid("Days must be 0 or greater.")
	}
	return s.repos.Batches.ListExpiringBefore(ctx, s.now().AddDate(0, 0, days))
}

// Stock operations

// ReduceStock disburses stock to a patient. The item's cached quantity is
// debited directly; batches are not touched.
func (s *InventoryService) ReduceStock(ctx context.Context, itemID int64, quantity int, patientName string) (*repository.InventoryItem, error) {
	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than 0"})
	}

	var item *repository.InventoryItem
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repos.Items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return errors.NotFound("inventory item")
		}
		if item.QuantityInStock < quantity {
			return errors.InsufficientStock(item.Name, item.QuantityInStock, quantity)
		}

		item.QuantityInStock -= quantity
		if err := s.repos.Items.SetQuantity(ctx, item.ID, item.QuantityInStock); err != nil {
			return err
		}

		remarks := "Stock reduced. Disbursed to patient: " + patientName
		return s.appendTransaction(ctx, item.ID, nil, repository.TransactionRemove, -quantity, remarks, &patientName)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("item_id", item.ID).
		Int("quantity", quantity).
		Int("remaining", item.QuantityInStock).
		Msg("stock reduced")

	s.publisher.PublishStockReduced(ctx, item, quantity, patientName)
	s.requestScan(ctx, "stock.reduced", item.ID)
	return item, nil
}

// RecomputeAggregate rewrites an item's cached quantity from its active batches
func (s *InventoryService) RecomputeAggregate(ctx context.Context, itemID int64) (int, error) {
	var total int
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Items.GetForUpdate(ctx, itemID); err != nil {
			return err
		}
		var err error
		total, err = s.recompute(ctx, itemID)
		return err
	})
	return total, err
}

// recompute must run inside a transaction holding the item lock
func (s *InventoryService) recompute(ctx context.Context, itemID int64) (int, error) {
	total, err := s.repos.Batches.SumActive(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("sum batches: %w", err)
	}
	if err := s.repos.Items.SetQuantity(ctx, itemID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// AggregateCheck is the result of comparing an item's cache with its batches
type AggregateCheck struct {
	ItemID     int64 `json:"item_id"`
	Cached     int   `json:"cached"`
	BatchTotal int   `json:"batch_total"`
	Consistent bool  `json:"consistent"`
}

// VerifyAggregate compares an item's cached quantity with the sum of its active batches
func (s *InventoryService) VerifyAggregate(ctx context.Context, itemID int64) (*AggregateCheck, error) {
	item, err := s.repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Batches.SumActive(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &AggregateCheck{
		ItemID:     item.ID,
		Cached:     item.QuantityInStock,
		BatchTotal: total,
		Consistent: item.QuantityInStock == total,
	}, nil
}

// RepairAggregates rewrites every drifted item that has batches. Items debited
// through ReduceStock drift by design, so this is an explicit admin action.
func (s *InventoryService) RepairAggregates(ctx context.Context) ([]*repository.AggregateDrift, error) {
	var drift []*repository.AggregateDrift
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		drift, err = s.repos.Items.ListDrift(ctx, nil)
		if err != nil {
			return err
		}
		for _, d := range drift {
			if err := s.repos.Items.SetQuantity(ctx, d.ItemID, d.BatchTotal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(drift) > 0 {
		s.logger.Warn().Int("items", len(drift)).Msg("repaired aggregate drift")
	}
	return drift, nil
}

func (s *InventoryService) appendTransaction(ctx context.Context, itemID int64, batchID *int64, txType string, change int, remarks string, patientName *string) error {
	tx := &repository.Transaction{
		ItemID:         itemID,
		BatchID:        batchID,
		Type:           txType,
		QuantityChange: change,
		Date:           s.now(),
		Remarks:        remarks,
		PatientName:    patientName,
	}
	if err := s.repos.Transactions.Append(ctx, tx); err != nil {
		return fmt.Errorf("append %s transaction: %w", txType, err)
	}
	return nil
}

func (s *InventoryService) requestScan(ctx context.Context, reason string, entityID int64) {
	if s.scans == nil {
		return
	}
	if err := s.scans.Enqueue(ctx, ScanRequest{Reason: reason, EntityID: entityID}); err != nil {
		s.logger.Error().Err(err).Str("reason", reason).Msg("failed to enqueue notification scan")
	}
}
