package service

import (
	"context"
	"testing"

	"chargedesk/internal/apperror"
	"chargedesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// typesWithRanges serves ListActiveWithEligibleRanges from a memRanges.
type typesWithRanges struct {
	*memTypes
	ranges *memRanges
}

func (m typesWithRanges) ListActiveWithEligibleRanges(ctx context.Context) ([]model.TransactionType, error) {
	all, _, _ := m.memTypes.List(ctx, 1, 100)
	out := make([]model.TransactionType, 0, len(all))
	for _, tt := range all {
		if !tt.IsActive {
			continue
		}
		tt.ChargeRanges, _ = m.ranges.ListEligibleByType(ctx, tt.ID)
		out = append(out, tt)
	}
	return out, nil
}

func newTypeService(types *memTypes, ranges *memRanges, audit *memAudit, c *memCache, admin uuid.UUID) TransactionTypeService {
	access := staticAccess{admin: {
		model.PermViewTransactionType,
		model.PermCreateTransactionType,
		model.PermEditTransactionType,
		model.PermDeleteTransactionType,
	}}
	return NewTransactionTypeService(passthroughTx{}, typesWithRanges{types, ranges}, ranges, audit, access, c)
}

func TestTransactionTypeCreate_Public(t *testing.T) {
	types := newMemTypes()
	audit := &memAudit{}
	svc := newTypeService(types, newMemRanges(types), audit, newMemCache(), uuid.New())

	desc := "Wallet to wallet"
	res, err := svc.Create(context.Background(), nil, CreateTransactionTypeRequest{
		Name:        "  Simba to Simba ",
		Code:        "SIMBA_TO_SIMBA",
		Description: &desc,
	})
	require.NoError(t, err)

	assert.Equal(t, "Simba to Simba", res.Name)
	assert.Equal(t, "SIMBA_TO_SIMBA", res.Code)
	assert.True(t, res.IsActive)
	assert.NotEqual(t, uuid.Nil.String(), res.ID)

	require.Len(t, audit.entries, 1)
	assert.Nil(t, audit.entries[0].UserID)
}

func TestTransactionTypeCreate_DuplicateCode(t *testing.T) {
	types := newMemTypes()
	types.add("SIMBA_TO_SIMBA", "Simba to Simba", true)
	svc := newTypeService(types, newMemRanges(types), &memAudit{}, newMemCache(), uuid.New())

	_, err := svc.Create(context.Background(), nil, CreateTransactionTypeRequest{Name: "Again", Code: "SIMBA_TO_SIMBA"})
	fields := validationFields(t, err)
	assert.Equal(t, []string{"The code has already been taken."}, fields["code"])
}

func TestTransactionTypeCreate_MissingFields(t *testing.T) {
	types := newMemTypes()
	svc := newTypeService(types, newMemRanges(types), &memAudit{}, newMemCache(), uuid.New())

	_, err := svc.Create(context.Background(), nil, CreateTransactionTypeRequest{Name: " ", Code: ""})
	fields := validationFields(t, err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "code")
}

func TestTransactionTypeCreate_AdminNeedsPermission(t *testing.T) {
	types := newMemTypes()
	svc := newTypeService(types, newMemRanges(types), &memAudit{}, newMemCache(), uuid.New())

	stranger := uuid.New()
	_, err := svc.Create(context.Background(), &stranger, CreateTransactionTypeRequest{Name: "X", Code: "X"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestTransactionTypeListActiveWithRanges(t *testing.T) {
	types := newMemTypes()
	ranges := newMemRanges(types)
	simba := types.add("SIMBA_TO_SIMBA", "Simba to Simba", true)
	retired := types.add("RETIRED", "Retired", false)
	ranges.put(simbaRange(simba.ID, model.ApprovalApproved, true))
	ranges.put(simbaRange(simba.ID, model.ApprovalPendingCEO, false))
	ranges.put(simbaRange(retired.ID, model.ApprovalApproved, true))
	svc := newTypeService(types, ranges, &memAudit{}, newMemCache(), uuid.New())

	res, err := svc.ListActiveWithRanges(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "SIMBA_TO_SIMBA", res[0].Code)
	require.Len(t, res[0].ChargeRanges, 1)

	cr := res[0].ChargeRanges[0]
	assert.Equal(t, "500.00", cr.MinAmount)
	assert.Equal(t, "10000.00", cr.MaxAmount)
	assert.Equal(t, model.FeeFlat, cr.ChargeDetails.Type)
	assert.Equal(t, "100.00", *cr.ChargeDetails.FlatAmount)
	assert.Nil(t, cr.ChargeDetails.Percentage)
	assert.Equal(t, model.FeePercentage, cr.TaxDetails.Type)
	assert.Nil(t, cr.TaxDetails.FlatAmount)
	assert.Equal(t, "2.00", *cr.TaxDetails.Percentage)
}

func TestTransactionTypeDelete(t *testing.T) {
	types := newMemTypes()
	ranges := newMemRanges(types)
	c := newMemCache()
	admin := uuid.New()
	svc := newTypeService(types, ranges, &memAudit{}, c, admin)
	ctx := context.Background()

	used := types.add("USED", "Used", true)
	ranges.put(simbaRange(used.ID, model.ApprovalDraft, false))
	err := svc.Delete(ctx, admin, used.ID)
	assert.ErrorIs(t, err, apperror.ErrTransactionTypeInUse)

	unused := types.add("UNUSED", "Unused", true)
	require.NoError(t, svc.Delete(ctx, admin, unused.ID))
	_, err = svc.Get(ctx, admin, unused.ID)
	assert.ErrorIs(t, err, apperror.ErrTransactionTypeNotFound)
	assert.Equal(t, []string{"UNUSED"}, c.invalidations())
}

func TestTransactionTypeUpdate_KeepsCode(t *testing.T) {
	types := newMemTypes()
	c := newMemCache()
	admin := uuid.New()
	svc := newTypeService(types, newMemRanges(types), &memAudit{}, c, admin)
	tt := types.add("SIMBA_TO_SIMBA", "Simba to Simba", true)

	inactive := false
	res, err := svc.Update(context.Background(), admin, tt.ID, UpdateTransactionTypeRequest{Name: "Simba", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Simba", res.Name)
	assert.Equal(t, "SIMBA_TO_SIMBA", res.Code)
	assert.False(t, res.IsActive)
	assert.Equal(t, []string{"SIMBA_TO_SIMBA"}, c.invalidations())
}
