package service

import (
	"context"
	"strings"
	"time"

	"github.com/medstock/medstock-backend/internal/inventory/events"
	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// NotificationFilterAll selects every notification type
const NotificationFilterAll = "ALL"

// NotificationService reads and closes notifications
type NotificationService struct {
	repos     *Repositories
	scanner   ScanRunner
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewNotificationService creates a new notification service. scanner may be nil.
func NewNotificationService(repos *Repositories, scanner ScanRunner, publisher *events.InventoryEventPublisher, log *logger.Logger) *NotificationService {
	return &NotificationService{
		repos:     repos,
		scanner:   scanner,
		publisher: publisher,
		logger:    log.WithComponent("notifications"),
	}
}

// List runs a scan and then returns every unseen notification, newest first
func (s *NotificationService) List(ctx context.Context) ([]*repository.Notification, error) {
	if s.scanner != nil {
		if err := s.scanner.ScanAll(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("scan before listing notifications failed")
		}
	}
	return s.repos.Notifications.ListUnseen(ctx, "")
}

// ListFiltered returns unseen notifications of one type, or all for "ALL"
func (s *NotificationService) ListFiltered(ctx context.Context, notificationType string) ([]*repository.Notification, error) {
	t, err := normalizeType(notificationType)
	if err != nil {
		return nil, err
	}
	return s.repos.Notifications.ListUnseen(ctx, t)
}

// MarkSeen closes one notification
func (s *NotificationService) MarkSeen(ctx context.Context, id int64) (*repository.Notification, error) {
	return s.repos.Notifications.MarkSeen(ctx, id)
}

// MarkAllSeen closes every unseen notification of a type ("ALL" or empty for
// every type) and returns how many were closed.
func (s *NotificationService) MarkAllSeen(ctx context.Context, notificationType string) (int64, error) {
	t, err := normalizeType(notificationType)
	if err != nil {
		return 0, err
	}
	count, err := s.repos.Notifications.MarkAllSeen(ctx, t)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("type", notificationType).Int64("count", count).Msg("notifications marked seen")
	return count, nil
}

// CreateNotificationInput is a manually raised notification
type CreateNotificationInput struct {
	Type         string
	BatchID      *int64
	ItemID       *int64
	QuantityLeft *int
	ExpiryDate   *time.Time
	Title        string
	Message      string
}

// Create opens a notification by hand. The entity is the batch for expiry
// types and the item for stock types.
func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*repository.Notification, error) {
	if !repository.IsNotificationType(in.Type) {
		return nil, errors.Validation(map[string]string{"notification_type": "must be one of LOW_STOCK EXPIRED SOON_EXPIRING REORDER"})
	}

	n := &repository.Notification{
		Type:         in.Type,
		BatchID:      in.BatchID,
		ItemID:       in.ItemID,
		QuantityLeft: in.QuantityLeft,
		ExpiryDate:   in.ExpiryDate,
		Title:        in.Title,
		Message:      in.Message,
	}

	switch in.Type {
	case repository.NotificationExpired, repository.NotificationSoonExpiring:
		if in.BatchID == nil {
			return nil, errors.Validation(map[string]string{"batch_id": "is required for expiry notifications"})
		}
		n.EntityID = *in.BatchID
	default:
		if in.ItemID == nil {
			return nil, errors.Validation(map[string]string{"inventory_item_id": "is required for stock notifications"})
		}
		n.EntityID = *in.ItemID
	}

	created, err := s.repos.Notifications.InsertIfAbsent(ctx, n)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.Conflict("an unseen notification of this type already exists for this entity")
	}

	s.publisher.PublishNotificationCreated(ctx, n)
	return n, nil
}

func normalizeType(t string) (string, error) {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" || t == NotificationFilterAll {
		return "", nil
	}
	if !repository.IsNotificationType(t) {
		return "", errors.Validation(map[string]string{"type": "must be ALL, LOW_STOCK, EXPIRED, SOON_EXPIRING or REORDER"})
	}
	return t, nil
}
