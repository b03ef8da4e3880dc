package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/medstock/medstock-backend/internal/inventory/events"
	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// DefaultExpiryWindowDays is how far ahead the expiry pass looks
const DefaultExpiryWindowDays = 30

// Scanner evaluates items and batches against their thresholds and opens
// notifications. At most one unseen notification exists per (type, entity);
// rerunning a scan on unchanged data creates nothing.
type Scanner struct {
	repos            *Repositories
	publisher        *events.InventoryEventPublisher
	expiryWindowDays int
	now              func() time.Time
	logger           *logger.Logger
}

// NewScanner creates a new notification scanner
func NewScanner(repos *Repositories, publisher *events.InventoryEventPublisher, expiryWindowDays int, log *logger.Logger) *Scanner {
	if expiryWindowDays <= 0 {
		expiryWindowDays = DefaultExpiryWindowDays
	}
	return &Scanner{
		repos:            repos,
		publisher:        publisher,
		expiryWindowDays: expiryWindowDays,
		now:              time.Now,
		logger:           log.WithComponent("notification-scanner"),
	}
}

// WithClock replaces the time source
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// ScanAll runs the expiry, low stock and reorder passes. A failing pass is
// logged and does not stop the others; the last error is returned.
func (s *Scanner) ScanAll(ctx context.Context) error {
	passes := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"expiry", s.scanExpiry},
		{"low_stock", s.scanLowStock},
		{"reorder", s.scanReorder},
	}

	var lastErr error
	for _, pass := range passes {
		created, err := pass.fn(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("pass", pass.name).Msg("notification scan failed")
			lastErr = err
			continue
		}
		if created > 0 {
			s.logger.Info().Str("pass", pass.name).Int("created", created).Msg("notifications created")
		}
	}
	return lastErr
}

// DaysUntilExpiry rounds the remaining time up to whole days
func DaysUntilExpiry(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

func (s *Scanner) scanExpiry(ctx context.Context) (int, error) {
	now := s.now()
	batches, err := s.repos.Batches.ListExpiringBefore(ctx, now.AddDate(0, 0, s.expiryWindowDays))
	if err != nil {
		return 0, fmt.Errorf("list expiring batches: %w", err)
	}

	created := 0
	for _, b := range batches {
		if b.ExpiryDate == nil {
			continue
		}

		n := &repository.Notification{
			EntityID:     b.ID,
			BatchID:      &b.ID,
			ItemID:       &b.ItemID,
			QuantityLeft: &b.Quantity,
			ExpiryDate:   b.ExpiryDate,
		}

		days := DaysUntilExpiry(*b.ExpiryDate, now)
		if days <= 0 {
			n.Type = repository.NotificationExpired
			n.Title = "Expired Batch: " + b.ItemName
			n.Message = fmt.Sprintf("Batch %s of %s has expired.", b.BatchNumber, b.ItemName)
		} else {
			n.Type = repository.NotificationSoonExpiring
			n.Title = "Soon Expiring Batch: " + b.ItemName
			n.Message = fmt.Sprintf("Batch %s of %s will expire in %d days (%s).",
				b.BatchNumber, b.ItemName, days, b.ExpiryDate.Format("2006-01-02"))
		}

		ok, err := s.open(ctx, n)
		if err != nil {
			s.logger.Error().Err(err).Int64("batch_id", b.ID).Msg("failed to open expiry notification")
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *Scanner) scanLowStock(ctx context.Context) (int, error) {
	items, err := s.repos.Items.ListAtOrBelowMinStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("list low stock items: %w", err)
	}

	created := 0
	for _, item := range items {
		n := &repository.Notification{
			Type:         repository.NotificationLowStock,
			EntityID:     item.ID,
			ItemID:       &item.ID,
			QuantityLeft: &item.QuantityInStock,
			Title:        "Low Stock Alert: " + item.Name,
			Message: fmt.Sprintf("The stock level for %s (%d units) has fallen below the minimum stock level (%d units).",
				item.Name, item.QuantityInStock, item.MinStockLevel),
		}

		ok, err := s.open(ctx, n)
		if err != nil {
			s.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to open low stock notification")
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *Scanner) scanReorder(ctx context.Context) (int, error) {
	items, err := s.repos.Items.ListAtOrBelowReorderLevel(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reorder items: %w", err)
	}

	created := 0
	for _, item := range items {
		n := &repository.Notification{
			Type:         repository.NotificationReorder,
			EntityID:     item.ID,
			ItemID:       &item.ID,
			QuantityLeft: &item.QuantityInStock,
			Title:        "Reorder Alert: " + item.Name,
			Message: fmt.Sprintf("The stock level for %s (%d units) has reached or fallen below the reorder level (%d units). Please reorder this item.",
				item.Name, item.QuantityInStock, item.ReorderLevel),
		}

		ok, err := s.open(ctx, n)
		if err != nil {
			s.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to open reorder notification")
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *Scanner) open(ctx context.Context, n *repository.Notification) (bool, error) {
	created, err := s.repos.Notifications.InsertIfAbsent(ctx, n)
	if err != nil {
		return false, err
	}
	if created {
		s.publisher.PublishNotificationCreated(ctx, n)
	}
	return created, nil
}
