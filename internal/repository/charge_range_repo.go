package repository

import (
	"context"
	"errors"
	"fmt"

	"chargedesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStaleState is returned by conditional updates when the row no longer has
// the expected approval status.
var ErrStaleState = errors.New("charge range status changed concurrently")

// ChargeRangeFilter narrows List and Export queries. Zero values mean no filter.
type ChargeRangeFilter struct {
	TransactionTypeID *uuid.UUID
	ApprovalStatus    string
	IsActive          *bool
	Page              int
	Limit             int
}

type ChargeRangeRepository interface {
	Create(ctx context.Context, cr *model.ChargeRange) error
	Delete(ctx context.Context, id uuid.UUID, allowedStatuses ...string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ChargeRange, error)
	List(ctx context.Context, filter ChargeRangeFilter) ([]model.ChargeRange, int64, error)
	ListEligibleByType(ctx context.Context, typeID uuid.UUID) ([]model.ChargeRange, error)
	CountByType(ctx context.Context, typeID uuid.UUID) (int64, error)
	CountOverlappingEligible(ctx context.Context, typeID uuid.UUID, minAmount, maxAmount decimal.Decimal, excludeID uuid.UUID) (int64, error)
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, expected string, changes map[string]interface{}) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type chargeRangeRepository struct {
	db *gorm.DB
}

func NewChargeRangeRepository(db *gorm.DB) ChargeRangeRepository {
	return &chargeRangeRepository{db: db}
}

func (r *chargeRangeRepository) Create(ctx context.Context, cr *model.ChargeRange) error {
	return GetDB(ctx, r.db).Omit("TransactionType", "Creator", "FinanceApprover", "CeoApprover").Create(cr).Error
}

// Delete removes the range. When allowedStatuses is given the row is only
// removed while its status is one of them, otherwise ErrStaleState.
func (r *chargeRangeRepository) Delete(ctx context.Context, id uuid.UUID, allowedStatuses ...string) error {
	q := GetDB(ctx, r.db).Where("id = ?", id)
	if len(allowedStatuses) > 0 {
		q = q.Where("approval_status IN ?", allowedStatuses)
	}
	result := q.Delete(&model.ChargeRange{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *chargeRangeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ChargeRange, error) {
	var cr model.ChargeRange
	if err := GetDB(ctx, r.db).
		Preload("TransactionType").
		Preload("Creator").
		Preload("FinanceApprover").
		Preload("CeoApprover").
		First(&cr, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *chargeRangeRepository) applyFilter(db *gorm.DB, filter ChargeRangeFilter) *gorm.DB {
	if filter.TransactionTypeID != nil {
		db = db.Where("transaction_type_id = ?", *filter.TransactionTypeID)
	}
	if filter.ApprovalStatus != "" {
		db = db.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	return db
}

// List returns a page of ranges. A non-positive Limit returns every match.
func (r *chargeRangeRepository) List(ctx context.Context, filter ChargeRangeFilter) ([]model.ChargeRange, int64, error) {
	var ranges []model.ChargeRange
	var total int64

	db := GetDB(ctx, r.db)
	if err := r.applyFilter(db.Model(&model.ChargeRange{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count charge ranges: %w", err)
	}

	query := r.applyFilter(db.Preload("TransactionType"), filter).Order("transaction_type_id asc, min_amount asc")
	if filter.Limit > 0 {
		query = query.Scopes(paginate(filter.Page, filter.Limit))
	}
	if err := query.Find(&ranges).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list charge ranges: %w", err)
	}

	return ranges, total, nil
}

// ListEligibleByType returns the active approved ranges of a type in one read.
func (r *chargeRangeRepository) ListEligibleByType(ctx context.Context, typeID uuid.UUID) ([]model.ChargeRange, error) {
	var ranges []model.ChargeRange
	if err := GetDB(ctx, r.db).
		Where("transaction_type_id = ? AND is_active = ? AND approval_status = ?", typeID, true, model.ApprovalApproved).
		Order("min_amount asc").
		Find(&ranges).Error; err != nil {
		return nil, err
	}
	return ranges, nil
}

func (r *chargeRangeRepository) CountByType(ctx context.Context, typeID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.ChargeRange{}).Where("transaction_type_id = ?", typeID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOverlappingEligible counts active approved ranges of the type, other
// than excludeID, whose closed interval intersects [minAmount, maxAmount].
func (r *chargeRangeRepository) CountOverlappingEligible(ctx context.Context, typeID uuid.UUID, minAmount, maxAmount decimal.Decimal, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ChargeRange{}).
		Where("transaction_type_id = ? AND id <> ?", typeID, excludeID).
		Where("is_active = ? AND approval_status = ?", true, model.ApprovalApproved).
		Where("min_amount <= ? AND max_amount >= ?", maxAmount, minAmount).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatusIfCurrent applies changes only while the row still has the
// expected approval status. Zero affected rows yields ErrStaleState.
func (r *chargeRangeRepository) UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, expected string, changes map[string]interface{}) error {
	result := GetDB(ctx, r.db).Model(&model.ChargeRange{}).
		Where("id = ? AND approval_status = ?", id, expected).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// SetActive toggles is_active on an approved range only.
func (r *chargeRangeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := GetDB(ctx, r.db).Model(&model.ChargeRange{}).
		Where("id = ? AND approval_status = ?", id, model.ApprovalApproved).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}
