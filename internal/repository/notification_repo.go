package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/db"
	"github.com/oggyb/birdie/internal/utils/pagination"
)

// NotificationView is a notification joined with the related user's primary photo.
type NotificationView struct {
	NotificationID   uint64              `json:"notification_id"`
	NotificationType db.NotificationType `json:"notification_type"`
	Message          string              `json:"message"`
	IsRead           bool                `json:"is_read"`
	CreatedAt        time.Time           `json:"created_at"`
	RelatedUserID    uint64              `json:"related_user_id"`
	RelatedUserPhoto *string             `json:"related_user_photo"`
}

// NotificationRepository provides data access methods for notifications.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// Emit appends a notification inside the caller's transaction.
func (r *NotificationRepository) Emit(
	ctx context.Context,
	tx *gorm.DB,
	recipientID, relatedID uint64,
	kind db.NotificationType,
	message string,
) error {
	n := db.Notification{
		UserID:           recipientID,
		RelatedUserID:    relatedID,
		NotificationType: kind,
		Message:          message,
	}
	return tx.WithContext(ctx).Create(&n).Error
}

// ListForUser returns the recipient's notifications, newest first.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Each row carries the related user's primary photo URL (NULL if none).
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListForUser(ctx, 42, nil, 20) // first 20 notifications for user 42
func (r *NotificationRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]NotificationView, *string, error) {
	cursor, err := pagination.Decode(pagination.Token(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	photo := r.db.
		Table("user_photos p").
		Select("p.photo_url").
		Where("p.user_id = n.related_user_id AND p.is_primary = ?", true).
		Limit(1)

	query := r.db.WithContext(ctx).
		Table("notifications n").
		Select(`n.id AS notification_id, n.notification_type, n.message, n.is_read,
			n.created_at, n.related_user_id, (?) AS related_user_photo`, photo).
		Where("n.user_id = ?", userID).
		Order("n.created_at DESC, n.id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(n.created_at < ? OR (n.created_at = ? AND n.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var rows []NotificationView
	if err := query.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	rows, next := pagination.Trim(rows, limit, func(v NotificationView) pagination.Cursor {
		return pagination.At(v.NotificationID, v.CreatedAt)
	})
	return rows, next, nil
}

// MarkAsRead flags one notification as read. It reports false when no row
// with that id belongs to userID.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, notificationID, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

// OwnedBy reports whether the notification exists and belongs to userID.
func (r *NotificationRepository) OwnedBy(ctx context.Context, notificationID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&count).Error
	return count > 0, err
}

// CountUnread returns how many unread notifications userID has.
// Used in conjunction with Redis cache (DB is fallback).
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// ListUndelivered returns up to limit notifications not yet handed to the
// delivery queue, oldest first.
func (r *NotificationRepository) ListUndelivered(ctx context.Context, limit int) ([]db.Notification, error) {
	var rows []db.Notification
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkDelivered stamps delivered_at on the given notifications.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id IN ?", ids).
		Update("delivered_at", at).Error
}
