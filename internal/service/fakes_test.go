package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"chargedesk/internal/cache"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"
	"chargedesk/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// staticAccess grants permissions per actor.
type staticAccess map[uuid.UUID][]string

func (a staticAccess) Can(_ context.Context, actorID uuid.UUID, permission string) (bool, error) {
	for _, p := range a[actorID] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func (a staticAccess) Permissions(_ context.Context, actorID uuid.UUID) ([]string, error) {
	return append([]string(nil), a[actorID]...), nil
}

// memTypes is an in-memory TransactionTypeRepository.
type memTypes struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.TransactionType
	locks int
}

func newMemTypes() *memTypes {
	return &memTypes{items: map[uuid.UUID]*model.TransactionType{}}
}

func (m *memTypes) add(code, name string, active bool) *model.TransactionType {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt := &model.TransactionType{ID: uuid.New(), Code: code, Name: name, IsActive: active}
	m.items[tt.ID] = tt
	return tt
}

func (m *memTypes) Create(_ context.Context, tt *model.TransactionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Code == tt.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	cp := *tt
	m.items[tt.ID] = &cp
	return nil
}

func (m *memTypes) Update(_ context.Context, tt *model.TransactionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tt
	m.items[tt.ID] = &cp
	return nil
}

func (m *memTypes) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memTypes) FindByID(_ context.Context, id uuid.UUID) (*model.TransactionType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tt
	return &cp, nil
}

func (m *memTypes) FindByCode(_ context.Context, code string) (*model.TransactionType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tt := range m.items {
		if tt.Code == code {
			cp := *tt
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memTypes) LockByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error) {
	m.mu.Lock()
	m.locks++
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *memTypes) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := m.FindByCode(ctx, code)
	return err == nil, nil
}

func (m *memTypes) List(_ context.Context, page, limit int) ([]model.TransactionType, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TransactionType, 0, len(m.items))
	for _, tt := range m.items {
		out = append(out, *tt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

// ListActiveWithEligibleRanges is wired to a memRanges by the test that needs it.
func (m *memTypes) ListActiveWithEligibleRanges(context.Context) ([]model.TransactionType, error) {
	return nil, nil
}

// memRanges is an in-memory ChargeRangeRepository with a compare-and-swap
// on approval_status.
type memRanges struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.ChargeRange
	types *memTypes
	users map[uuid.UUID]model.User
}

func newMemRanges(types *memTypes) *memRanges {
	return &memRanges{items: map[uuid.UUID]*model.ChargeRange{}, types: types, users: map[uuid.UUID]model.User{}}
}

// addUser makes FindByID preload u wherever it is referenced.
func (m *memRanges) addUser(id uuid.UUID, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = model.User{ID: id, Username: username}
}

func (m *memRanges) user(id *uuid.UUID) *model.User {
	if id == nil {
		return nil
	}
	if u, ok := m.users[*id]; ok {
		return &u
	}
	return nil
}

func (m *memRanges) put(cr model.ChargeRange) *model.ChargeRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	m.items[cr.ID] = &cr
	return &cr
}

func (m *memRanges) get(id uuid.UUID) model.ChargeRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memRanges) Create(_ context.Context, cr *model.ChargeRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	cp := *cr
	m.items[cr.ID] = &cp
	return nil
}

func (m *memRanges) Delete(_ context.Context, id uuid.UUID, allowedStatuses ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok {
		return repository.ErrStaleState
	}
	if len(allowedStatuses) > 0 && !contains(allowedStatuses, cr.ApprovalStatus) {
		return repository.ErrStaleState
	}
	delete(m.items, id)
	return nil
}

func (m *memRanges) FindByID(_ context.Context, id uuid.UUID) (*model.ChargeRange, error) {
	m.mu.Lock()
	cr, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	cp := *cr
	cp.Creator = m.user(cp.CreatedBy)
	cp.FinanceApprover = m.user(cp.FinanceApprovedBy)
	cp.CeoApprover = m.user(cp.CeoApprovedBy)
	m.mu.Unlock()

	if m.types != nil {
		if tt, err := m.types.FindByID(context.Background(), cp.TransactionTypeID); err == nil {
			cp.TransactionType = tt
		}
	}
	return &cp, nil
}

func (m *memRanges) matching(filter repository.ChargeRangeFilter) []model.ChargeRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ChargeRange{}
	for _, cr := range m.items {
		if filter.TransactionTypeID != nil && cr.TransactionTypeID != *filter.TransactionTypeID {
			continue
		}
		if filter.ApprovalStatus != "" && cr.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		if filter.IsActive != nil && cr.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *cr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinAmount.LessThan(out[j].MinAmount) })
	return out
}

func (m *memRanges) List(_ context.Context, filter repository.ChargeRangeFilter) ([]model.ChargeRange, int64, error) {
	out := m.matching(filter)
	return out, int64(len(out)), nil
}

func (m *memRanges) ListEligibleByType(_ context.Context, typeID uuid.UUID) ([]model.ChargeRange, error) {
	active := true
	return m.matching(repository.ChargeRangeFilter{
		TransactionTypeID: &typeID,
		ApprovalStatus:    model.ApprovalApproved,
		IsActive:          &active,
	}), nil
}

func (m *memRanges) CountByType(_ context.Context, typeID uuid.UUID) (int64, error) {
	return int64(len(m.matching(repository.ChargeRangeFilter{TransactionTypeID: &typeID}))), nil
}

func (m *memRanges) CountOverlappingEligible(ctx context.Context, typeID uuid.UUID, minAmount, maxAmount decimal.Decimal, excludeID uuid.UUID) (int64, error) {
	eligible, _ := m.ListEligibleByType(ctx, typeID)
	candidate := model.ChargeRange{MinAmount: minAmount, MaxAmount: maxAmount}
	var n int64
	for i := range eligible {
		if eligible[i].ID != excludeID && eligible[i].Overlaps(&candidate) {
			n++
		}
	}
	return n, nil
}

func (m *memRanges) UpdateStatusIfCurrent(_ context.Context, id uuid.UUID, expected string, changes map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok || cr.ApprovalStatus != expected {
		return repository.ErrStaleState
	}
	applyChanges(cr, changes)
	return nil
}

func (m *memRanges) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok || cr.ApprovalStatus != model.ApprovalApproved {
		return repository.ErrStaleState
	}
	cr.IsActive = active
	return nil
}

func applyChanges(cr *model.ChargeRange, changes map[string]interface{}) {
	uuidPtr := func(v interface{}) *uuid.UUID {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
		return nil
	}
	timePtr := func(v interface{}) *time.Time {
		if t, ok := v.(time.Time); ok {
			return &t
		}
		return nil
	}

	for key, v := range changes {
		switch key {
		case "approval_status":
			cr.ApprovalStatus = v.(string)
		case "is_active":
			cr.IsActive = v.(bool)
		case "rejection_reason":
			if s, ok := v.(string); ok {
				cr.RejectionReason = &s
			} else {
				cr.RejectionReason = nil
			}
		case "created_by":
			cr.CreatedBy = uuidPtr(v)
		case "finance_approved_by":
			cr.FinanceApprovedBy = uuidPtr(v)
		case "finance_approved_at":
			cr.FinanceApprovedAt = timePtr(v)
		case "ceo_approved_by":
			cr.CeoApprovedBy = uuidPtr(v)
		case "ceo_approved_at":
			cr.CeoApprovedAt = timePtr(v)
		case "transaction_type_id":
			cr.TransactionTypeID = v.(uuid.UUID)
		case "min_amount":
			cr.MinAmount = v.(decimal.Decimal)
		case "max_amount":
			cr.MaxAmount = v.(decimal.Decimal)
		case "charge_type":
			cr.ChargeType = v.(model.FeeMode)
		case "tax_type":
			cr.TaxType = v.(model.FeeMode)
		case "flat_charge_amount":
			cr.FlatChargeAmount = v.(decimal.NullDecimal)
		case "percentage_charge_amount":
			cr.PercentageChargeAmount = v.(decimal.NullDecimal)
		case "flat_tax_amount":
			cr.FlatTaxAmount = v.(decimal.NullDecimal)
		case "percentage_tax_amount":
			cr.PercentageTaxAmount = v.(decimal.NullDecimal)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (m *memAudit) Log(_ context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) List(context.Context, repository.AuditFilter, int, int) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []workflow.Event
}

func (r *recordingNotifier) Notify(_ context.Context, events []workflow.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordingNotifier) all() []workflow.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workflow.Event(nil), r.events...)
}

// memCache is a ScheduleCache that remembers invalidations.
type memCache struct {
	mu          sync.Mutex
	schedules   map[string]*cache.Schedule
	generations map[string]int64
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{schedules: map[string]*cache.Schedule{}, generations: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, code string) (*cache.Schedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedules[code], nil
}

func (c *memCache) Generation(_ context.Context, code string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[code], nil
}

func (c *memCache) Set(_ context.Context, code string, generation int64, s *cache.Schedule) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[code] != generation {
		return false, nil
	}
	c.schedules[code] = s
	return true, nil
}

func (c *memCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[code]++
	delete(c.schedules, code)
	c.invalidated = append(c.invalidated, code)
	return nil
}

func (c *memCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

// simbaRange is flat 100 charge with a 2% tax over [500, 10000].
func simbaRange(typeID uuid.UUID, status string, active bool) model.ChargeRange {
	return model.ChargeRange{
		TransactionTypeID:   typeID,
		MinAmount:           dec("500"),
		MaxAmount:           dec("10000"),
		ChargeType:          model.FeeFlat,
		FlatChargeAmount:    nullDec("100"),
		TaxType:             model.FeePercentage,
		PercentageTaxAmount: nullDec("2"),
		ApprovalStatus:      status,
		IsActive:            active,
	}
}
