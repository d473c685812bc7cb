package repository

import (
	"context"

	"chargedesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionTypeRepository interface {
	Create(ctx context.Context, tt *model.TransactionType) error
	Update(ctx context.Context, tt *model.TransactionType) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error)
	FindByCode(ctx context.Context, code string) (*model.TransactionType, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, page, limit int) ([]model.TransactionType, int64, error)
	ListActiveWithEligibleRanges(ctx context.Context) ([]model.TransactionType, error)
}

type transactionTypeRepository struct {
	db *gorm.DB
}

func NewTransactionTypeRepository(db *gorm.DB) TransactionTypeRepository {
	return &transactionTypeRepository{db: db}
}

func (r *transactionTypeRepository) Create(ctx context.Context, tt *model.TransactionType) error {
	return GetDB(ctx, r.db).Create(tt).Error
}

func (r *transactionTypeRepository) Update(ctx context.Context, tt *model.TransactionType) error {
	return GetDB(ctx, r.db).Omit("ChargeRanges").Save(tt).Error
}

func (r *transactionTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TransactionType{}).Error
}

func (r *transactionTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error) {
	var tt model.TransactionType
	if err := GetDB(ctx, r.db).First(&tt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *transactionTypeRepository) FindByCode(ctx context.Context, code string) (*model.TransactionType, error) {
	var tt model.TransactionType
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&tt).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

// LockByID takes a row lock on the type. Activation paths hold it while
// checking for overlapping ranges so two activations of one type serialize.
func (r *transactionTypeRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error) {
	var tt model.TransactionType
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *transactionTypeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.TransactionType{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *transactionTypeRepository) List(ctx context.Context, page, limit int) ([]model.TransactionType, int64, error) {
	var types []model.TransactionType
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.TransactionType{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("name asc").Scopes(paginate(page, limit)).Find(&types).Error; err != nil {
		return nil, 0, err
	}

	return types, total, nil
}

func (r *transactionTypeRepository) ListActiveWithEligibleRanges(ctx context.Context) ([]model.TransactionType, error) {
	var types []model.TransactionType
	err := GetDB(ctx, r.db).
		Where("is_active = ?", true).
		Preload("ChargeRanges", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ? AND approval_status = ?", true, model.ApprovalApproved).
				Order("min_amount asc")
		}).
		Order("name asc").
		Find(&types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}
