package repository

import (
	"context"
	"time"

	"chargedesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows audit log listings. Zero fields are ignored. To is
// exclusive.
type AuditFilter struct {
	EntityID string
	Action   string
	UserID   *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Omit("User").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	scoped := func(q *gorm.DB) *gorm.DB {
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("created_at < ?", *filter.To)
		}
		return q
	}

	if err := scoped(db.Model(&model.AuditLog{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := scoped(db.Preload("User")).Order("created_at desc").Scopes(paginate(page, limit)).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
