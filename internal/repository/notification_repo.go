package repository

import (
	"context"
	"time"

	"chargedesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
	ListEmailRetries(ctx context.Context, maxAttempts, limit int) ([]model.Notification, error)
	UpdateEmailStatus(ctx context.Context, n *model.Notification) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Omit("User").Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	scoped := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.Notification{}).Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("read_at IS NULL")
		}
		return q
	}

	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := scoped().Order("created_at desc").Scopes(paginate(page, limit)).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead reports false when the notification does not exist or belongs to another user.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Where("read_at IS NULL").
		Update("read_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListEmailRetries returns failed email deliveries that still have attempts left, oldest first.
func (r *notificationRepository) ListEmailRetries(ctx context.Context, maxAttempts, limit int) ([]model.Notification, error) {
	var items []model.Notification
	if err := GetDB(ctx, r.db).
		Preload("User").
		Where("email_status = ? AND email_attempts < ?", model.EmailFailed, maxAttempts).
		Order("created_at asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *notificationRepository) UpdateEmailStatus(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ?", n.ID).
		Updates(map[string]interface{}{
			"email_status":   n.EmailStatus,
			"email_attempts": n.EmailAttempts,
			"email_error":    n.EmailError,
		}).Error
}
