package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Notification types
const (
	NotificationLowStock     = "LOW_STOCK"
	NotificationExpired      = "EXPIRED"
	NotificationSoonExpiring = "SOON_EXPIRING"
	NotificationReorder      = "REORDER"
)

// IsNotificationType reports whether t is one of the known types
func IsNotificationType(t string) bool {
	switch t {
	case NotificationLowStock, NotificationExpired, NotificationSoonExpiring, NotificationReorder:
		return true
	}
	return false
}

// Notification is an alert about a threshold breach. EntityID is the batch
// for expiry types and the item for stock types; at most one unseen row
// exists per (type, entity).
type Notification struct {
	ID           int64      `db:"id" json:"id"`
	Type         string     `db:"notification_type" json:"notification_type"`
	EntityID     int64      `db:"entity_id" json:"entity_id"`
	BatchID      *int64     `db:"batch_id" json:"batch_id,omitempty"`
	ItemID       *int64     `db:"inventory_item_id" json:"inventory_item_id,omitempty"`
	QuantityLeft *int       `db:"quantity_left" json:"quantity_left,omitempty"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Title        string     `db:"title" json:"title"`
	Message      string     `db:"message" json:"message"`
	Seen         bool       `db:"seen" json:"seen"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

const notificationColumns = `id, notification_type, entity_id, batch_id, inventory_item_id,
	quantity_left, expiry_date, title, message, seen, created_at`

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertIfAbsent inserts n unless an unseen notification with the same
// (type, entity) exists. The partial unique index makes this atomic; a
// conflict returns created=false and no error.
func (r *NotificationRepository) InsertIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	query := `
		INSERT INTO notifications (
			notification_type, entity_id, batch_id, inventory_item_id, quantity_left,
			expiry_date, title, message, seen
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
		ON CONFLICT (notification_type, entity_id) WHERE seen = false DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		n.Type, n.EntityID, n.BatchID, n.ItemID, n.QuantityLeft, n.ExpiryDate, n.Title, n.Message,
	).Scan(&n.ID, &n.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n.Seen = false
	return true, nil
}

// GetByID gets a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*Notification, error) {
	var n Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &n, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("notification")
		}
		return nil, err
	}
	return &n, nil
}

// ListUnseen returns unseen notifications, newest first, optionally of one type
func (r *NotificationRepository) ListUnseen(ctx context.Context, notificationType string) ([]*Notification, error) {
	notifications := []*Notification{}
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE seen = false AND ($1 = '' OR notification_type = $1)
		ORDER BY created_at DESC, id DESC`
	if err := r.db.Q(ctx).SelectContext(ctx, &notifications, query, notificationType); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkSeen closes one notification. Marking an already seen row is a no-op.
func (r *NotificationRepository) MarkSeen(ctx context.Context, id int64) (*Notification, error) {
	var n Notification
	query := `UPDATE notifications SET seen = true WHERE id = $1 RETURNING ` + notificationColumns
	if err := r.db.Q(ctx).GetContext(ctx, &n, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("notification")
		}
		return nil, err
	}
	return &n, nil
}

// MarkAllSeen closes every unseen notification, optionally of one type, and returns the count
func (r *NotificationRepository) MarkAllSeen(ctx context.Context, notificationType string) (int64, error) {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE notifications SET seen = true WHERE seen = false AND ($1 = '' OR notification_type = $1)`,
		notificationType)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CloseForBatch marks every unseen notification referencing the batch as seen
func (r *NotificationRepository) CloseForBatch(ctx context.Context, batchID int64) (int64, error) {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE notifications SET seen = true WHERE seen = false AND batch_id = $1`, batchID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
