package service

import (
	"context"
	"errors"
	"strings"

	"chargedesk/internal/apperror"
	"chargedesk/internal/cache"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTransactionTypeRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Code        string  `json:"code" binding:"required,max=100"`
	Description *string `json:"description"`
}

type UpdateTransactionTypeRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type TransactionTypeResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// PublicChargeRange is an eligible range as shown to API consumers.
type PublicChargeRange struct {
	ID            string     `json:"id"`
	MinAmount     string     `json:"min_amount"`
	MaxAmount     string     `json:"max_amount"`
	ChargeDetails FeeDetails `json:"charge_details"`
	TaxDetails    FeeDetails `json:"tax_details"`
}

type TransactionTypeWithRanges struct {
	ID           string              `json:"id"`
	Code         string              `json:"code"`
	Name         string              `json:"name"`
	Description  *string             `json:"description"`
	ChargeRanges []PublicChargeRange `json:"charge_ranges"`
}

// --- Interface ---

type TransactionTypeService interface {
	ListActiveWithRanges(ctx context.Context) ([]TransactionTypeWithRanges, error)
	Create(ctx context.Context, actor *uuid.UUID, req CreateTransactionTypeRequest) (*TransactionTypeResponse, error)
	List(ctx context.Context, actor uuid.UUID, page, limit int) ([]TransactionTypeResponse, int64, error)
	Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*TransactionTypeResponse, error)
	Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req UpdateTransactionTypeRequest) (*TransactionTypeResponse, error)
	Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error
}

type transactionTypeService struct {
	txManager repository.TransactionManager
	types     repository.TransactionTypeRepository
	ranges    repository.ChargeRangeRepository
	auditRepo repository.AuditRepository
	access    AccessControl
	schedule  cache.ScheduleCache
}

func NewTransactionTypeService(
	txManager repository.TransactionManager,
	types repository.TransactionTypeRepository,
	ranges repository.ChargeRangeRepository,
	auditRepo repository.AuditRepository,
	access AccessControl,
	schedule cache.ScheduleCache,
) TransactionTypeService {
	return &transactionTypeService{
		txManager: txManager,
		types:     types,
		ranges:    ranges,
		auditRepo: auditRepo,
		access:    access,
		schedule:  schedule,
	}
}

// --- Implementation ---

func (s *transactionTypeService) ListActiveWithRanges(ctx context.Context) ([]TransactionTypeWithRanges, error) {
	types, err := s.types.ListActiveWithEligibleRanges(ctx)
	if err != nil {
		return nil, apperror.Persistence("list transaction types", err)
	}

	res := make([]TransactionTypeWithRanges, 0, len(types))
	for _, tt := range types {
		item := TransactionTypeWithRanges{
			ID:           tt.ID.String(),
			Code:         tt.Code,
			Name:         tt.Name,
			Description:  tt.Description,
			ChargeRanges: make([]PublicChargeRange, 0, len(tt.ChargeRanges)),
		}
		for i := range tt.ChargeRanges {
			cr := &tt.ChargeRanges[i]
			item.ChargeRanges = append(item.ChargeRanges, PublicChargeRange{
				ID:            cr.ID.String(),
				MinAmount:     cr.MinAmount.StringFixed(2),
				MaxAmount:     cr.MaxAmount.StringFixed(2),
				ChargeDetails: toFeeDetails(cr.ServiceCharge()),
				TaxDetails:    toFeeDetails(cr.GovernmentTax()),
			})
		}
		res = append(res, item)
	}
	return res, nil
}

// Create adds a type. actor is nil on the public API, where no permission
// check applies.
func (s *transactionTypeService) Create(ctx context.Context, actor *uuid.UUID, req CreateTransactionTypeRequest) (*TransactionTypeResponse, error) {
	if actor != nil {
		if err := authorize(ctx, s.access, *actor, model.PermCreateTransactionType); err != nil {
			return nil, err
		}
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = []string{"The name field is required."}
	}
	if req.Code == "" {
		fields["code"] = []string{"The code field is required."}
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	tt := &model.TransactionType{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.types.ExistsByCode(txCtx, req.Code)
		if err != nil {
			return apperror.Persistence("check transaction type code", err)
		}
		if exists {
			return duplicateCodeError()
		}
		if err := s.types.Create(txCtx, tt); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateCodeError()
			}
			return apperror.Persistence("create transaction type", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateTransactionType, tt.ID.String(), tt.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := toTransactionTypeResponse(tt)
	return &resp, nil
}

func (s *transactionTypeService) List(ctx context.Context, actor uuid.UUID, page, limit int) ([]TransactionTypeResponse, int64, error) {
	if err := authorize(ctx, s.access, actor, model.PermViewTransactionType); err != nil {
		return nil, 0, err
	}

	types, total, err := s.types.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Persistence("list transaction types", err)
	}

	res := make([]TransactionTypeResponse, 0, len(types))
	for i := range types {
		res = append(res, toTransactionTypeResponse(&types[i]))
	}
	return res, total, nil
}

func (s *transactionTypeService) Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*TransactionTypeResponse, error) {
	if err := authorize(ctx, s.access, actor, model.PermViewTransactionType); err != nil {
		return nil, err
	}
	tt, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTransactionTypeResponse(tt)
	return &resp, nil
}

// Update changes name, description and the active flag. The code is immutable
// because it is the calculator's lookup key.
func (s *transactionTypeService) Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req UpdateTransactionTypeRequest) (*TransactionTypeResponse, error) {
	if err := authorize(ctx, s.access, actor, model.PermEditTransactionType); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperror.Validation(map[string][]string{"name": {"The name field is required."}})
	}

	var tt *model.TransactionType
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		tt, err = s.find(txCtx, id)
		if err != nil {
			return err
		}
		tt.Name = req.Name
		tt.Description = req.Description
		if req.IsActive != nil {
			tt.IsActive = *req.IsActive
		}
		if err := s.types.Update(txCtx, tt); err != nil {
			return apperror.Persistence("update transaction type", err)
		}
		return recordAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateTransactionType, tt.ID.String(), tt.Name, req)
	})
	if err != nil {
		return nil, err
	}

	invalidateSchedule(ctx, s.schedule, tt.Code)
	resp := toTransactionTypeResponse(tt)
	return &resp, nil
}

// Delete refuses while charge ranges still reference the type.
func (s *transactionTypeService) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	if err := authorize(ctx, s.access, actor, model.PermDeleteTransactionType); err != nil {
		return err
	}

	var code string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tt, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		code = tt.Code

		count, err := s.ranges.CountByType(txCtx, id)
		if err != nil {
			return apperror.Persistence("count charge ranges", err)
		}
		if count > 0 {
			return apperror.ErrTransactionTypeInUse
		}
		if err := s.types.Delete(txCtx, id); err != nil {
			return apperror.Persistence("delete transaction type", err)
		}
		return recordAudit(txCtx, s.auditRepo, &actor, model.ActionDeleteTransactionType, id.String(), tt.Name, map[string]string{"code": tt.Code})
	})
	if err != nil {
		return err
	}

	invalidateSchedule(ctx, s.schedule, code)
	return nil
}

func (s *transactionTypeService) find(ctx context.Context, id uuid.UUID) (*model.TransactionType, error) {
	tt, err := s.types.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrTransactionTypeNotFound
		}
		return nil, apperror.Persistence("load transaction type", err)
	}
	return tt, nil
}

func duplicateCodeError() error {
	return apperror.Validation(map[string][]string{
		"code": {"The code has already been taken."},
	})
}

func toTransactionTypeResponse(tt *model.TransactionType) TransactionTypeResponse {
	return TransactionTypeResponse{
		ID:          tt.ID.String(),
		Code:        tt.Code,
		Name:        tt.Name,
		Description: tt.Description,
		IsActive:    tt.IsActive,
		CreatedAt:   tt.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:   tt.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
