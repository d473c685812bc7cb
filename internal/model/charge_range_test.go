package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func eligible(minAmount, maxAmount string) ChargeRange {
	return ChargeRange{
		ID:             uuid.New(),
		MinAmount:      d(minAmount),
		MaxAmount:      d(maxAmount),
		ApprovalStatus: ApprovalApproved,
		IsActive:       true,
	}
}

func TestFeeApply(t *testing.T) {
	amount := d("5000")

	t.Run("flat ignores percentage field", func(t *testing.T) {
		got := Fee{Mode: FeeFlat, Flat: d("100"), Percentage: d("50")}.Apply(amount)
		assert.True(t, got.Flat.Equal(d("100")))
		assert.True(t, got.Percentage.IsZero())
		assert.Equal(t, "100.00", got.Total.StringFixed(2))
	})

	t.Run("percentage ignores flat field", func(t *testing.T) {
		got := Fee{Mode: FeePercentage, Flat: d("999"), Percentage: d("2")}.Apply(amount)
		assert.True(t, got.Flat.IsZero())
		assert.Equal(t, "100.00", got.Percentage.StringFixed(2))
		assert.Equal(t, "100.00", got.Total.StringFixed(2))
	})

	t.Run("both rounds each component before summing", func(t *testing.T) {
		// 1234.56 * 0.15% = 1.85184 -> 1.85
		got := Fee{Mode: FeeBoth, Flat: d("500"), Percentage: d("0.15")}.Apply(d("1234.56"))
		assert.Equal(t, "1.85", got.Percentage.StringFixed(2))
		assert.Equal(t, "501.85", got.Total.StringFixed(2))
		assert.True(t, got.Total.Equal(got.Flat.Add(got.Percentage)))
	})

	t.Run("half rounds away from zero", func(t *testing.T) {
		// 0.25 * 2% = 0.005 -> 0.01
		got := Fee{Mode: FeePercentage, Percentage: d("2")}.Apply(d("0.25"))
		assert.Equal(t, "0.01", got.Total.StringFixed(2))
	})
}

func TestFeeMode(t *testing.T) {
	assert.True(t, FeeBoth.HasFlat())
	assert.True(t, FeeBoth.HasPercentage())
	assert.False(t, FeeFlat.HasPercentage())
	assert.False(t, FeePercentage.HasFlat())
	assert.False(t, FeeMode("tiered").Valid())
}

func TestChargeRange_ContainsIsInclusive(t *testing.T) {
	r := eligible("500", "10000")
	assert.True(t, r.Contains(d("500")))
	assert.True(t, r.Contains(d("10000")))
	assert.False(t, r.Contains(d("499.99")))
	assert.False(t, r.Contains(d("10000.01")))
}

func TestChargeRange_Overlaps(t *testing.T) {
	a := eligible("500", "10000")
	b := eligible("10000", "20000")
	c := eligible("10000.01", "20000")
	assert.True(t, a.Overlaps(&b))
	assert.False(t, a.Overlaps(&c))
}

func TestChargeRange_Eligibility(t *testing.T) {
	r := eligible("0", "10")
	assert.True(t, r.IsEligible())

	r.IsActive = false
	assert.False(t, r.IsEligible())

	r.IsActive = true
	r.ApprovalStatus = ApprovalPendingCEO
	assert.False(t, r.IsEligible())
	assert.False(t, r.IsEditable())

	r.ApprovalStatus = ApprovalRejected
	assert.True(t, r.IsEditable())
}

func TestSelectRange(t *testing.T) {
	t.Run("no match", func(t *testing.T) {
		_, ok := SelectRange([]ChargeRange{eligible("500", "10000")}, d("50"))
		assert.False(t, ok)
	})

	t.Run("skips ineligible", func(t *testing.T) {
		draft := eligible("0", "100")
		draft.ApprovalStatus = ApprovalDraft
		_, ok := SelectRange([]ChargeRange{draft}, d("50"))
		assert.False(t, ok)
	})

	t.Run("narrowest wins", func(t *testing.T) {
		wide := eligible("0", "100000")
		narrow := eligible("1000", "2000")
		got, ok := SelectRange([]ChargeRange{wide, narrow}, d("1500"))
		require.True(t, ok)
		assert.Equal(t, narrow.ID, got.ID)
	})

	t.Run("equal width prefers latest approval", func(t *testing.T) {
		older := eligible("0", "100")
		newer := eligible("50", "150")
		t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		t2 := t1.Add(time.Hour)
		older.CeoApprovedAt = &t1
		newer.CeoApprovedAt = &t2
		got, ok := SelectRange([]ChargeRange{older, newer}, d("75"))
		require.True(t, ok)
		assert.Equal(t, newer.ID, got.ID)
	})

	t.Run("full tie falls back to id order", func(t *testing.T) {
		a := eligible("0", "100")
		b := eligible("0", "100")
		want := a.ID
		if b.ID.String() < a.ID.String() {
			want = b.ID
		}
		got, ok := SelectRange([]ChargeRange{a, b}, d("10"))
		require.True(t, ok)
		assert.Equal(t, want, got.ID)
	})
}
