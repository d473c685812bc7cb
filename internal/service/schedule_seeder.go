package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chargedesk/internal/cache"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedType struct {
	Code        string
	Name        string
	Description string
	Ranges      []seedRange
}

// seedRange amounts are decimal strings; empty means the mode does not use the field.
type seedRange struct {
	Min, Max   int64
	Charge     model.FeeMode
	FlatCharge string
	PctCharge  string
	Tax        model.FeeMode
	FlatTax    string
	PctTax     string
}

func p2pTiers() []seedRange {
	return []seedRange{
		{Min: 500, Max: 10000, Charge: model.FeeFlat, FlatCharge: "100", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 10001, Max: 50000, Charge: model.FeeFlat, FlatCharge: "300", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 50001, Max: 1000000, Charge: model.FeeBoth, FlatCharge: "500", PctCharge: "0.1", Tax: model.FeePercentage, PctTax: "2"},
	}
}

func mnoInboundTiers() []seedRange {
	return []seedRange{
		{Min: 1000, Max: 20000, Charge: model.FeeFlat, FlatCharge: "200", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 20001, Max: 100000, Charge: model.FeeFlat, FlatCharge: "500", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 100001, Max: 3000000, Charge: model.FeePercentage, PctCharge: "1", Tax: model.FeePercentage, PctTax: "2"},
	}
}

func mnoOutboundTiers() []seedRange {
	return []seedRange{
		{Min: 1000, Max: 50000, Charge: model.FeeFlat, FlatCharge: "400", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 50001, Max: 1000000, Charge: model.FeePercentage, PctCharge: "1.2", Tax: model.FeePercentage, PctTax: "2"},
	}
}

func bankTiers() []seedRange {
	return []seedRange{
		{Min: 10000, Max: 100000, Charge: model.FeeFlat, FlatCharge: "1000", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 100001, Max: 1000000, Charge: model.FeeBoth, FlatCharge: "1500", PctCharge: "0.5", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 1000001, Max: 10000000, Charge: model.FeePercentage, PctCharge: "1", Tax: model.FeePercentage, PctTax: "2"},
	}
}

func merchantTiers() []seedRange {
	return []seedRange{
		{Min: 1000, Max: 50000, Charge: model.FeeFlat, FlatCharge: "200", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 50001, Max: 500000, Charge: model.FeePercentage, PctCharge: "0.8", Tax: model.FeePercentage, PctTax: "2"},
		{Min: 500001, Max: 5000000, Charge: model.FeePercentage, PctCharge: "0.5", Tax: model.FeePercentage, PctTax: "2"},
	}
}

func defaultSchedule() []seedType {
	return []seedType{
		{Code: "TIGO_TO_SIMBA", Name: "Tigo Wallet to Simba Money", Description: "Transfer from Tigo Pesa wallet to Simba Money", Ranges: mnoInboundTiers()},
		{Code: "MPESA_TO_SIMBA", Name: "Vodacom Mpesa Wallet to Simba Money", Description: "Transfer from M-Pesa wallet to Simba Money", Ranges: mnoInboundTiers()},
		{Code: "AIRTEL_TO_SIMBA", Name: "Airtel Wallet to Simba Money", Description: "Transfer from Airtel Money wallet to Simba Money", Ranges: mnoInboundTiers()},
		{Code: "LOCAL_INT_BANKS_TO_SIMBA", Name: "Local Int Banks to Simba Money", Description: "Transfer from Local International Banks to Simba Money"},
		{Code: "SIMBA_TO_SIMBA", Name: "Simba Money to Simba Money (P2P)", Description: "Person to Person transfer between Simba Money accounts", Ranges: p2pTiers()},
		{Code: "SIMBA_TO_MNO", Name: "Simba Money to MNO Wallets", Description: "Transfer from Simba Money to Mobile Network Operator wallets", Ranges: mnoOutboundTiers()},
		{Code: "SIMBA_TO_ECO_BANK", Name: "Simba Money to Local Bank (Eco)", Description: "Transfer from Simba Money to Local Eco Bank", Ranges: bankTiers()},
		{Code: "SIMBA_TO_LOCAL_BANKS", Name: "Simba Money to Local Banks", Description: "Transfer from Simba Money to Local Banks", Ranges: bankTiers()},
		{Code: "SIMBA_TO_NMB_BILLS", Name: "Simba Money to NMB (Bill Payments)", Description: "Bill Payments from Simba Money to NMB Bank", Ranges: bankTiers()},
		{Code: "SIMBA_TO_SELCOM_MERCHANT", Name: "Simba Money to SELCOM (Merchants)", Description: "Merchant payments from Simba Money to SELCOM", Ranges: merchantTiers()},
		{Code: "SIMBA_TO_INT_BANKS", Name: "Simba Money to Int Banks", Description: "Transfer from Simba Money to International Banks", Ranges: bankTiers()},
	}
}

// SeedResult counts what a seeding run created.
type SeedResult struct {
	TransactionTypes int
	ChargeRanges     int
}

// ScheduleSeeder installs the default transaction types and their approved,
// active charge ranges.
type ScheduleSeeder struct {
	txManager repository.TransactionManager
	types     repository.TransactionTypeRepository
	ranges    repository.ChargeRangeRepository
	schedule  cache.ScheduleCache
	now       func() time.Time
}

func NewScheduleSeeder(txManager repository.TransactionManager, types repository.TransactionTypeRepository, ranges repository.ChargeRangeRepository, schedule cache.ScheduleCache) *ScheduleSeeder {
	return &ScheduleSeeder{txManager: txManager, types: types, ranges: ranges, schedule: schedule, now: time.Now}
}

// SeedDefaultSchedule is idempotent. Missing types are created; ranges are only
// added to a type that has none yet, and a range that would overlap an active
// approved one is skipped.
func (s *ScheduleSeeder) SeedDefaultSchedule(ctx context.Context) (SeedResult, error) {
	var total SeedResult
	for _, st := range defaultSchedule() {
		res, err := s.seedType(ctx, st)
		if err != nil {
			return total, err
		}
		total.TransactionTypes += res.TransactionTypes
		total.ChargeRanges += res.ChargeRanges

		if res.ChargeRanges > 0 {
			invalidateSchedule(ctx, s.schedule, st.Code)
		}
	}
	return total, nil
}

func (s *ScheduleSeeder) seedType(ctx context.Context, st seedType) (SeedResult, error) {
	var res SeedResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tt, err := s.types.FindByCode(txCtx, st.Code)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up transaction type '%s': %w", st.Code, err)
			}
			desc := st.Description
			tt = &model.TransactionType{Code: st.Code, Name: st.Name, Description: &desc, IsActive: true}
			if err := s.types.Create(txCtx, tt); err != nil {
				return fmt.Errorf("failed to seed transaction type '%s': %w", st.Code, err)
			}
			res.TransactionTypes++
		}
		if len(st.Ranges) == 0 {
			return nil
		}

		if _, err := s.types.LockByID(txCtx, tt.ID); err != nil {
			return fmt.Errorf("failed to lock transaction type '%s': %w", st.Code, err)
		}
		existing, err := s.ranges.CountByType(txCtx, tt.ID)
		if err != nil {
			return fmt.Errorf("failed to count ranges of '%s': %w", st.Code, err)
		}
		if existing > 0 {
			return nil
		}

		approvedAt := s.now()
		for _, sr := range st.Ranges {
			cr := sr.toChargeRange(tt.ID, approvedAt)
			overlapping, err := s.ranges.CountOverlappingEligible(txCtx, tt.ID, cr.MinAmount, cr.MaxAmount, uuid.Nil)
			if err != nil {
				return fmt.Errorf("failed to check overlap for '%s': %w", st.Code, err)
			}
			if overlapping > 0 {
				logger.WarnContext(txCtx, "skipping seeded range that overlaps an active one",
					"code", st.Code, "min", cr.MinAmount.String(), "max", cr.MaxAmount.String())
				continue
			}
			if err := s.ranges.Create(txCtx, &cr); err != nil {
				return fmt.Errorf("failed to seed range %d-%d of '%s': %w", sr.Min, sr.Max, st.Code, err)
			}
			res.ChargeRanges++
		}
		return nil
	})
	return res, err
}

func (sr seedRange) toChargeRange(typeID uuid.UUID, approvedAt time.Time) model.ChargeRange {
	return model.ChargeRange{
		TransactionTypeID:      typeID,
		MinAmount:              decimal.NewFromInt(sr.Min),
		MaxAmount:              decimal.NewFromInt(sr.Max),
		ChargeType:             sr.Charge,
		FlatChargeAmount:       seedAmount(sr.Charge.HasFlat(), sr.FlatCharge),
		PercentageChargeAmount: seedAmount(sr.Charge.HasPercentage(), sr.PctCharge),
		TaxType:                sr.Tax,
		FlatTaxAmount:          seedAmount(sr.Tax.HasFlat(), sr.FlatTax),
		PercentageTaxAmount:    seedAmount(sr.Tax.HasPercentage(), sr.PctTax),
		ApprovalStatus:         model.ApprovalApproved,
		FinanceApprovedAt:      &approvedAt,
		CeoApprovedAt:          &approvedAt,
		IsActive:               true,
	}
}

func seedAmount(used bool, v string) decimal.NullDecimal {
	if !used || v == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}
