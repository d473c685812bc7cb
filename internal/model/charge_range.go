package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ApprovalDraft          = "draft"
	ApprovalPendingFinance = "pending_finance"
	ApprovalPendingCEO     = "pending_ceo"
	ApprovalApproved       = "approved"
	ApprovalRejected       = "rejected"
)

// ApprovalStatuses lists every workflow state in lifecycle order
var ApprovalStatuses = []string{
	ApprovalDraft,
	ApprovalPendingFinance,
	ApprovalPendingCEO,
	ApprovalApproved,
	ApprovalRejected,
}

// ChargeRange is a tiered charge and tax rule bound to an amount interval of one transaction type
type ChargeRange struct {
	ID                     uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionTypeID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"transaction_type_id"`
	TransactionType        *TransactionType    `gorm:"foreignKey:TransactionTypeID" json:"transaction_type,omitempty"`
	MinAmount              decimal.Decimal     `gorm:"type:decimal(15,2);not null;index:idx_charge_ranges_bounds,priority:1" json:"min_amount"`
	MaxAmount              decimal.Decimal     `gorm:"type:decimal(15,2);not null;index:idx_charge_ranges_bounds,priority:2" json:"max_amount"`
	ChargeType             FeeMode             `gorm:"type:varchar(20);not null" json:"charge_type"`
	FlatChargeAmount       decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"flat_charge_amount"`
	PercentageChargeAmount decimal.NullDecimal `gorm:"type:decimal(8,2)" json:"percentage_charge_amount"`
	TaxType                FeeMode             `gorm:"type:varchar(20);not null" json:"tax_type"`
	FlatTaxAmount          decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"flat_tax_amount"`
	PercentageTaxAmount    decimal.NullDecimal `gorm:"type:decimal(8,2)" json:"percentage_tax_amount"`
	ApprovalStatus         string              `gorm:"type:varchar(20);not null;default:'draft';index" json:"approval_status"`
	RejectionReason        *string             `gorm:"type:text" json:"rejection_reason"`
	CreatedBy              *uuid.UUID          `gorm:"type:uuid;index" json:"created_by"`
	Creator                *User               `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	FinanceApprovedBy      *uuid.UUID          `gorm:"type:uuid" json:"finance_approved_by"`
	FinanceApprover        *User               `gorm:"foreignKey:FinanceApprovedBy" json:"finance_approver,omitempty"`
	FinanceApprovedAt      *time.Time          `json:"finance_approved_at"`
	CeoApprovedBy          *uuid.UUID          `gorm:"type:uuid" json:"ceo_approved_by"`
	CeoApprover            *User               `gorm:"foreignKey:CeoApprovedBy" json:"ceo_approver,omitempty"`
	CeoApprovedAt          *time.Time          `json:"ceo_approved_at"`
	IsActive               bool                `gorm:"default:false;index" json:"is_active"`
	CreatedAt              time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ChargeRange) IsDraft() bool          { return r.ApprovalStatus == ApprovalDraft }
func (r *ChargeRange) IsPendingFinance() bool { return r.ApprovalStatus == ApprovalPendingFinance }
func (r *ChargeRange) IsPendingCEO() bool     { return r.ApprovalStatus == ApprovalPendingCEO }
func (r *ChargeRange) IsApproved() bool       { return r.ApprovalStatus == ApprovalApproved }
func (r *ChargeRange) IsRejected() bool       { return r.ApprovalStatus == ApprovalRejected }

// IsEditable reports whether fields other than the status may change.
func (r *ChargeRange) IsEditable() bool {
	return r.IsDraft() || r.IsRejected()
}

// IsEligible reports whether the calculator may use this range.
func (r *ChargeRange) IsEligible() bool {
	return r.IsActive && r.IsApproved()
}

func (r *ChargeRange) ServiceCharge() Fee {
	return Fee{Mode: r.ChargeType, Flat: r.FlatChargeAmount.Decimal, Percentage: r.PercentageChargeAmount.Decimal}
}

func (r *ChargeRange) GovernmentTax() Fee {
	return Fee{Mode: r.TaxType, Flat: r.FlatTaxAmount.Decimal, Percentage: r.PercentageTaxAmount.Decimal}
}

// Contains reports whether amount lies in the closed interval [MinAmount, MaxAmount].
func (r *ChargeRange) Contains(amount decimal.Decimal) bool {
	return r.MinAmount.LessThanOrEqual(amount) && amount.LessThanOrEqual(r.MaxAmount)
}

func (r *ChargeRange) Overlaps(other *ChargeRange) bool {
	return r.MinAmount.LessThanOrEqual(other.MaxAmount) && other.MinAmount.LessThanOrEqual(r.MaxAmount)
}

// SelectRange picks the eligible range covering amount. When more than one
// covers it the narrowest interval wins, then the most recent CEO approval,
// then the lowest id.
func SelectRange(ranges []ChargeRange, amount decimal.Decimal) (*ChargeRange, bool) {
	matches := make([]ChargeRange, 0, 1)
	for _, r := range ranges {
		if r.IsEligible() && r.Contains(amount) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		wi := matches[i].MaxAmount.Sub(matches[i].MinAmount)
		wj := matches[j].MaxAmount.Sub(matches[j].MinAmount)
		if !wi.Equal(wj) {
			return wi.LessThan(wj)
		}
		ai, aj := matches[i].CeoApprovedAt, matches[j].CeoApprovedAt
		switch {
		case ai != nil && aj != nil && !ai.Equal(*aj):
			return ai.After(*aj)
		case ai != nil && aj == nil:
			return true
		case ai == nil && aj != nil:
			return false
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})

	return &matches[0], true
}
