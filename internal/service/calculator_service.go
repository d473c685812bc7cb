package service

import (
	"context"
	"errors"
	"strings"

	"chargedesk/internal/apperror"
	"chargedesk/internal/cache"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CalculateRequest struct {
	TransactionType string           `json:"transaction_type" binding:"required"`
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
}

type FeeBreakdown struct {
	Flat       string `json:"flat"`
	Percentage string `json:"percentage"`
	Total      string `json:"total"`
}

type AmountRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// ChargeBreakdown is the result of a charge calculation. Amounts are fixed
// two-place decimal strings.
type ChargeBreakdown struct {
	Amount          string       `json:"amount"`
	ServiceCharge   FeeBreakdown `json:"service_charge"`
	GovernmentTax   FeeBreakdown `json:"government_tax"`
	TotalCharges    string       `json:"total_charges"`
	TotalAmount     string       `json:"total_amount"`
	TransactionType string       `json:"transaction_type"`
	Range           AmountRange  `json:"range"`
}

// --- Interface ---

type CalculatorService interface {
	Calculate(ctx context.Context, typeCode string, amount decimal.Decimal) (*ChargeBreakdown, error)
}

type calculatorService struct {
	types    repository.TransactionTypeRepository
	ranges   repository.ChargeRangeRepository
	schedule cache.ScheduleCache
}

func NewCalculatorService(types repository.TransactionTypeRepository, ranges repository.ChargeRangeRepository, schedule cache.ScheduleCache) CalculatorService {
	return &calculatorService{types: types, ranges: ranges, schedule: schedule}
}

// --- Implementation ---

func (s *calculatorService) Calculate(ctx context.Context, typeCode string, amount decimal.Decimal) (*ChargeBreakdown, error) {
	typeCode = strings.TrimSpace(typeCode)
	if typeCode == "" {
		return nil, apperror.Validation(map[string][]string{
			"transaction_type": {"The transaction type field is required."},
		})
	}
	if amount.IsNegative() {
		return nil, apperror.Validation(map[string][]string{
			"amount": {"The amount must be at least 0."},
		})
	}

	schedule, err := s.loadSchedule(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	if !schedule.TransactionType.IsActive {
		return nil, apperror.ErrTransactionTypeInactive
	}

	matched, ok := model.SelectRange(schedule.Ranges, amount)
	if !ok {
		return nil, apperror.ErrNoMatchingRange
	}

	res := ComputeBreakdown(&schedule.TransactionType, matched, amount)
	return &res, nil
}

// loadSchedule reads the type and its eligible ranges, from cache when possible.
// Cache failures degrade to a store read. A store read is cached only under the
// generation observed before it, so a write that invalidates meanwhile wins.
func (s *calculatorService) loadSchedule(ctx context.Context, code string) (*cache.Schedule, error) {
	cached, err := s.schedule.Get(ctx, code)
	if err != nil {
		logger.WarnContext(ctx, "charge schedule cache read failed", "code", code, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	generation, genErr := s.schedule.Generation(ctx, code)
	if genErr != nil {
		logger.WarnContext(ctx, "charge schedule generation read failed", "code", code, "error", genErr)
	}

	tt, err := s.types.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation(map[string][]string{
				"transaction_type": {"The selected transaction type is invalid."},
			})
		}
		return nil, apperror.Persistence("load transaction type", err)
	}

	ranges, err := s.ranges.ListEligibleByType(ctx, tt.ID)
	if err != nil {
		return nil, apperror.Persistence("load charge ranges", err)
	}

	loaded := &cache.Schedule{TransactionType: *tt, Ranges: ranges}
	if genErr == nil {
		if _, err := s.schedule.Set(ctx, code, generation, loaded); err != nil {
			logger.WarnContext(ctx, "charge schedule cache write failed", "code", code, "error", err)
		}
	}
	return loaded, nil
}

// ComputeBreakdown applies the range's charge and tax to amount.
func ComputeBreakdown(tt *model.TransactionType, r *model.ChargeRange, amount decimal.Decimal) ChargeBreakdown {
	charge := r.ServiceCharge().Apply(amount)
	tax := r.GovernmentTax().Apply(amount)
	totalCharges := charge.Total.Add(tax.Total)

	return ChargeBreakdown{
		Amount:          amount.StringFixed(2),
		ServiceCharge:   toFeeBreakdown(charge),
		GovernmentTax:   toFeeBreakdown(tax),
		TotalCharges:    totalCharges.StringFixed(2),
		TotalAmount:     amount.Add(totalCharges).StringFixed(2),
		TransactionType: tt.Name,
		Range: AmountRange{
			Min: r.MinAmount.StringFixed(2),
			Max: r.MaxAmount.StringFixed(2),
		},
	}
}

func toFeeBreakdown(a model.FeeAmount) FeeBreakdown {
	return FeeBreakdown{
		Flat:       a.Flat.StringFixed(2),
		Percentage: a.Percentage.StringFixed(2),
		Total:      a.Total.StringFixed(2),
	}
}
