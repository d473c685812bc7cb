package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chargedesk/internal/apperror"
	"chargedesk/internal/cache"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ChargeRangeRequest struct {
	TransactionTypeID      string           `json:"transaction_type_id" binding:"required,uuid"`
	MinAmount              *decimal.Decimal `json:"min_amount" binding:"required"`
	MaxAmount              *decimal.Decimal `json:"max_amount" binding:"required"`
	ChargeType             model.FeeMode    `json:"charge_type" binding:"required,oneof=flat percentage both"`
	FlatChargeAmount       *decimal.Decimal `json:"flat_charge_amount"`
	PercentageChargeAmount *decimal.Decimal `json:"percentage_charge_amount"`
	TaxType                model.FeeMode    `json:"tax_type" binding:"required,oneof=flat percentage both"`
	FlatTaxAmount          *decimal.Decimal `json:"flat_tax_amount"`
	PercentageTaxAmount    *decimal.Decimal `json:"percentage_tax_amount"`
}

type ChargeRangeQuery struct {
	TransactionTypeID string
	ApprovalStatus    string
	IsActive          *bool
	Page              int
	Limit             int
}

// FeeDetails renders a Fee carrying only the fields its type uses.
type FeeDetails struct {
	Type       model.FeeMode `json:"type"`
	FlatAmount *string       `json:"flat_amount,omitempty"`
	Percentage *string       `json:"percentage,omitempty"`
}

type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ChargeRangeResponse struct {
	ID                  string     `json:"id"`
	TransactionTypeID   string     `json:"transaction_type_id"`
	TransactionTypeCode string     `json:"transaction_type_code,omitempty"`
	TransactionTypeName string     `json:"transaction_type_name,omitempty"`
	MinAmount           string     `json:"min_amount"`
	MaxAmount           string     `json:"max_amount"`
	ChargeDetails       FeeDetails `json:"charge_details"`
	TaxDetails          FeeDetails `json:"tax_details"`
	ApprovalStatus      string     `json:"approval_status"`
	RejectionReason     *string    `json:"rejection_reason"`
	IsActive            bool       `json:"is_active"`
	Creator             *UserRef   `json:"creator"`
	FinanceApprover     *UserRef   `json:"finance_approver"`
	FinanceApprovedAt   *string    `json:"finance_approved_at"`
	CeoApprover         *UserRef   `json:"ceo_approver"`
	CeoApprovedAt       *string    `json:"ceo_approved_at"`
	CreatedAt           string     `json:"created_at"`
	UpdatedAt           string     `json:"updated_at"`
}

// --- Interface ---

type ChargeRangeService interface {
	Create(ctx context.Context, actor uuid.UUID, req ChargeRangeRequest) (*ChargeRangeResponse, error)
	Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req ChargeRangeRequest) (*ChargeRangeResponse, error)
	Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error
	Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error)
	List(ctx context.Context, actor uuid.UUID, q ChargeRangeQuery) ([]ChargeRangeResponse, int64, error)
	SetActive(ctx context.Context, actor uuid.UUID, id uuid.UUID, active bool) (*ChargeRangeResponse, error)
}

type chargeRangeService struct {
	txManager    repository.TransactionManager
	chargeRanges repository.ChargeRangeRepository
	types        repository.TransactionTypeRepository
	auditRepo    repository.AuditRepository
	access       AccessControl
	schedule     cache.ScheduleCache
}

func NewChargeRangeService(
	txManager repository.TransactionManager,
	chargeRanges repository.ChargeRangeRepository,
	types repository.TransactionTypeRepository,
	auditRepo repository.AuditRepository,
	access AccessControl,
	schedule cache.ScheduleCache,
) ChargeRangeService {
	return &chargeRangeService{
		txManager:    txManager,
		chargeRanges: chargeRanges,
		types:        types,
		auditRepo:    auditRepo,
		access:       access,
		schedule:     schedule,
	}
}

// --- Implementation ---

func (s *chargeRangeService) Create(ctx context.Context, actor uuid.UUID, req ChargeRangeRequest) (*ChargeRangeResponse, error) {
	if err := authorize(ctx, s.access, actor, model.PermCreateChargeRange); err != nil {
		return nil, err
	}
	typeID, err := validateChargeRangeRequest(req)
	if err != nil {
		return nil, err
	}

	cr := &model.ChargeRange{ApprovalStatus: model.ApprovalDraft, CreatedBy: &actor}
	applyChargeRangeRequest(cr, typeID, req)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.lookupType(txCtx, typeID); err != nil {
			return err
		}
		if err := s.chargeRanges.Create(txCtx, cr); err != nil {
			return apperror.Persistence("create charge range", err)
		}
		return recordAudit(txCtx, s.auditRepo, &actor, model.ActionCreateChargeRange, cr.ID.String(), "", req)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, cr.ID)
}

// Update replaces the editable fields. A rejected range goes back to draft so
// it can be resubmitted.
func (s *chargeRangeService) Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req ChargeRangeRequest) (*ChargeRangeResponse, error) {
	if err := authorize(ctx, s.access, actor, model.PermEditChargeRange); err != nil {
		return nil, err
	}
	typeID, err := validateChargeRangeRequest(req)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		if !current.IsEditable() {
			return apperror.ErrNotEditable
		}
		if _, err := s.lookupType(txCtx, typeID); err != nil {
			return err
		}

		next := *current
		applyChargeRangeRequest(&next, typeID, req)
		changes := map[string]interface{}{
			"transaction_type_id":      next.TransactionTypeID,
			"min_amount":               next.MinAmount,
			"max_amount":               next.MaxAmount,
			"charge_type":              next.ChargeType,
			"flat_charge_amount":       next.FlatChargeAmount,
			"percentage_charge_amount": next.PercentageChargeAmount,
			"tax_type":                 next.TaxType,
			"flat_tax_amount":          next.FlatTaxAmount,
			"percentage_tax_amount":    next.PercentageTaxAmount,
		}
		if current.IsRejected() {
			changes["approval_status"] = model.ApprovalDraft
			changes["rejection_reason"] = nil
			changes["finance_approved_by"] = nil
			changes["finance_approved_at"] = nil
			changes["ceo_approved_by"] = nil
			changes["ceo_approved_at"] = nil
		}

		if err := s.chargeRanges.UpdateStatusIfCurrent(txCtx, id, current.ApprovalStatus, changes); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperror.ErrNotEditable
			}
			return apperror.Persistence("update charge range", err)
		}
		return recordAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateChargeRange, id.String(), "", map[string]interface{}{
			"previous_status": current.ApprovalStatus,
			"request":         req,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, id)
}

func (s *chargeRangeService) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	if err := authorize(ctx, s.access, actor, model.PermDeleteChargeRange); err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		if !current.IsEditable() {
			return apperror.ErrNotEditable
		}
		if err := s.chargeRanges.Delete(txCtx, id, model.ApprovalDraft, model.ApprovalRejected); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperror.ErrNotEditable
			}
			return apperror.Persistence("delete charge range", err)
		}
		return recordAudit(txCtx, s.auditRepo, &actor, model.ActionDeleteChargeRange, id.String(), "", map[string]interface{}{
			"min_amount": current.MinAmount.StringFixed(2),
			"max_amount": current.MaxAmount.StringFixed(2),
			"status":     current.ApprovalStatus,
		})
	})
}

func (s *chargeRangeService) Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*ChargeRangeResponse, error) {
	if err := authorize(ctx, s.access, actor, model.PermViewChargeRange); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *chargeRangeService) List(ctx context.Context, actor uuid.UUID, q ChargeRangeQuery) ([]ChargeRangeResponse, int64, error) {
	if err := authorize(ctx, s.access, actor, model.PermViewChargeRange); err != nil {
		return nil, 0, err
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, 0, err
	}

	ranges, total, err := s.chargeRanges.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Persistence("list charge ranges", err)
	}

	res := make([]ChargeRangeResponse, 0, len(ranges))
	for i := range ranges {
		res = append(res, toChargeRangeResponse(&ranges[i]))
	}
	return res, total, nil
}

// SetActive toggles an approved range. Activation refuses ranges that would
// overlap another active approved range of the same type.
func (s *chargeRangeService) SetActive(ctx context.Context, actor uuid.UUID, id uuid.UUID, active bool) (*ChargeRangeResponse, error) {
	if err := authorize(ctx, s.access, actor, model.PermToggleChargeRange); err != nil {
		return nil, err
	}

	var typeCode string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		if !current.IsApproved() {
			return apperror.ErrNotApproved
		}
		if current.TransactionType != nil {
			typeCode = current.TransactionType.Code
		}
		if active {
			if err := ensureNoOverlap(txCtx, s.types, s.chargeRanges, current); err != nil {
				return err
			}
		}
		if err := s.chargeRanges.SetActive(txCtx, id, active); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperror.ErrNotApproved
			}
			return apperror.Persistence("toggle charge range", err)
		}
		return recordAudit(txCtx, s.auditRepo, &actor, model.ActionToggleChargeRange, id.String(), "", map[string]interface{}{
			"is_active": active,
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateSchedule(ctx, s.schedule, typeCode)
	return s.reload(ctx, id)
}

// --- Helpers ---

func (s *chargeRangeService) find(ctx context.Context, id uuid.UUID) (*model.ChargeRange, error) {
	cr, err := s.chargeRanges.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.ErrChargeRangeNotFound, "load charge range")
	}
	return cr, nil
}

// notFoundOr maps a missing record to notFound and anything else to a
// persistence error for op.
func notFoundOr(err error, notFound *apperror.Error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperror.Persistence(op, err)
}

func (s *chargeRangeService) reload(ctx context.Context, id uuid.UUID) (*ChargeRangeResponse, error) {
	cr, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toChargeRangeResponse(cr)
	return &resp, nil
}

func (s *chargeRangeService) lookupType(ctx context.Context, id uuid.UUID) (*model.TransactionType, error) {
	tt, err := s.types.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation(map[string][]string{
				"transaction_type_id": {"The selected transaction type is invalid."},
			})
		}
		return nil, apperror.Persistence("load transaction type", err)
	}
	return tt, nil
}

// ensureNoOverlap locks the owning type so concurrent activations of the same
// type serialize, then checks the interval against the eligible ranges.
func ensureNoOverlap(ctx context.Context, types repository.TransactionTypeRepository, ranges repository.ChargeRangeRepository, cr *model.ChargeRange) error {
	if _, err := types.LockByID(ctx, cr.TransactionTypeID); err != nil {
		return apperror.Persistence("lock transaction type", err)
	}
	count, err := ranges.CountOverlappingEligible(ctx, cr.TransactionTypeID, cr.MinAmount, cr.MaxAmount, cr.ID)
	if err != nil {
		return apperror.Persistence("check overlapping ranges", err)
	}
	if count > 0 {
		return apperror.ErrOverlappingRange
	}
	return nil
}

func invalidateSchedule(ctx context.Context, schedule cache.ScheduleCache, code string) {
	if code == "" {
		return
	}
	if err := schedule.Invalidate(ctx, code); err != nil {
		logger.WarnContext(ctx, "failed to invalidate cached schedule", "code", code, "error", err)
	}
}

func (q ChargeRangeQuery) toFilter() (repository.ChargeRangeFilter, error) {
	filter := repository.ChargeRangeFilter{IsActive: q.IsActive, Page: q.Page, Limit: q.Limit}
	fields := map[string][]string{}

	if q.TransactionTypeID != "" {
		id, err := uuid.Parse(q.TransactionTypeID)
		if err != nil {
			fields["transaction_type_id"] = []string{"The transaction type id must be a valid UUID."}
		} else {
			filter.TransactionTypeID = &id
		}
	}
	if q.ApprovalStatus != "" {
		valid := false
		for _, s := range model.ApprovalStatuses {
			if s == q.ApprovalStatus {
				valid = true
			}
		}
		if !valid {
			fields["approval_status"] = []string{"The approval status must be one of: " + strings.Join(model.ApprovalStatuses, ", ") + "."}
		}
		filter.ApprovalStatus = q.ApprovalStatus
	}

	if len(fields) > 0 {
		return filter, apperror.Validation(fields)
	}
	return filter, nil
}

// maxMoneyAmount is the largest value a decimal(15,2) column holds.
var maxMoneyAmount = decimal.RequireFromString("9999999999999.99")

func validateChargeRangeRequest(req ChargeRangeRequest) (uuid.UUID, error) {
	fields := map[string][]string{}
	add := func(field, msg string) { fields[field] = append(fields[field], msg) }

	typeID, err := uuid.Parse(req.TransactionTypeID)
	if err != nil {
		add("transaction_type_id", "The transaction type id must be a valid UUID.")
	}

	checkMoney := func(field string, v *decimal.Decimal) {
		if v == nil {
			add(field, "The "+humanize(field)+" field is required.")
			return
		}
		if v.IsNegative() {
			add(field, "The "+humanize(field)+" must be at least 0.")
		}
		if v.GreaterThan(maxMoneyAmount) {
			add(field, "The "+humanize(field)+" must not be greater than "+maxMoneyAmount.StringFixed(2)+".")
		}
		if !v.Equal(v.Round(2)) {
			add(field, "The "+humanize(field)+" must not have more than 2 decimal places.")
		}
	}
	checkMoney("min_amount", req.MinAmount)
	checkMoney("max_amount", req.MaxAmount)
	if req.MinAmount != nil && req.MaxAmount != nil && req.MinAmount.GreaterThan(*req.MaxAmount) {
		add("max_amount", "The max amount must be greater than or equal to the min amount.")
	}

	checkFee := func(prefix string, mode model.FeeMode, flat, pct *decimal.Decimal) {
		modeField := prefix + "_type"
		flatField := "flat_" + prefix + "_amount"
		pctField := "percentage_" + prefix + "_amount"

		if !mode.Valid() {
			add(modeField, "The "+humanize(modeField)+" must be one of: flat, percentage, both.")
			return
		}
		if mode.HasFlat() {
			checkMoney(flatField, flat)
		} else if flat != nil {
			add(flatField, "The "+humanize(flatField)+" must be empty when the "+humanize(modeField)+" is "+string(mode)+".")
		}
		if mode.HasPercentage() {
			checkMoney(pctField, pct)
			if pct != nil && pct.GreaterThan(decimal.NewFromInt(100)) {
				add(pctField, "The "+humanize(pctField)+" may not be greater than 100.")
			}
		} else if pct != nil {
			add(pctField, "The "+humanize(pctField)+" must be empty when the "+humanize(modeField)+" is "+string(mode)+".")
		}
	}
	checkFee("charge", req.ChargeType, req.FlatChargeAmount, req.PercentageChargeAmount)
	checkFee("tax", req.TaxType, req.FlatTaxAmount, req.PercentageTaxAmount)

	if len(fields) > 0 {
		return uuid.Nil, apperror.Validation(fields)
	}
	return typeID, nil
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

func applyChargeRangeRequest(cr *model.ChargeRange, typeID uuid.UUID, req ChargeRangeRequest) {
	cr.TransactionTypeID = typeID
	cr.MinAmount = *req.MinAmount
	cr.MaxAmount = *req.MaxAmount
	cr.ChargeType = req.ChargeType
	cr.FlatChargeAmount = nullable(req.FlatChargeAmount)
	cr.PercentageChargeAmount = nullable(req.PercentageChargeAmount)
	cr.TaxType = req.TaxType
	cr.FlatTaxAmount = nullable(req.FlatTaxAmount)
	cr.PercentageTaxAmount = nullable(req.PercentageTaxAmount)
}

func toFeeDetails(f model.Fee) FeeDetails {
	d := FeeDetails{Type: f.Mode}
	if f.Mode.HasFlat() {
		v := f.Flat.StringFixed(2)
		d.FlatAmount = &v
	}
	if f.Mode.HasPercentage() {
		v := f.Percentage.StringFixed(2)
		d.Percentage = &v
	}
	return d
}

func toUserRef(id *uuid.UUID, u *model.User) *UserRef {
	if id == nil {
		return nil
	}
	ref := &UserRef{ID: id.String()}
	if u != nil {
		ref.Username = u.Username
	}
	return ref
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format("2006-01-02 15:04:05")
	return &v
}

func toChargeRangeResponse(cr *model.ChargeRange) ChargeRangeResponse {
	resp := ChargeRangeResponse{
		ID:                cr.ID.String(),
		TransactionTypeID: cr.TransactionTypeID.String(),
		MinAmount:         cr.MinAmount.StringFixed(2),
		MaxAmount:         cr.MaxAmount.StringFixed(2),
		ChargeDetails:     toFeeDetails(cr.ServiceCharge()),
		TaxDetails:        toFeeDetails(cr.GovernmentTax()),
		ApprovalStatus:    cr.ApprovalStatus,
		RejectionReason:   cr.RejectionReason,
		IsActive:          cr.IsActive,
		Creator:           toUserRef(cr.CreatedBy, cr.Creator),
		FinanceApprover:   toUserRef(cr.FinanceApprovedBy, cr.FinanceApprover),
		FinanceApprovedAt: formatTime(cr.FinanceApprovedAt),
		CeoApprover:       toUserRef(cr.CeoApprovedBy, cr.CeoApprover),
		CeoApprovedAt:     formatTime(cr.CeoApprovedAt),
		CreatedAt:         cr.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:         cr.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if cr.TransactionType != nil {
		resp.TransactionTypeCode = cr.TransactionType.Code
		resp.TransactionTypeName = cr.TransactionType.Name
	}
	return resp
}
