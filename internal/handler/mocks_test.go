package handler

import (
	"context"

	"chargedesk/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCalculatorService
type MockCalculatorService struct {
	mock.Mock
}

func (m *MockCalculatorService) Calculate(ctx context.Context, typeCode string, amount decimal.Decimal) (*service.ChargeBreakdown, error) {
	args := m.Called(ctx, typeCode, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChargeBreakdown), args.Error(1)
}

// MockTransactionTypeService
type MockTransactionTypeService struct {
	mock.Mock
}

func (m *MockTransactionTypeService) ListActiveWithRanges(ctx context.Context) ([]service.TransactionTypeWithRanges, error) {
	args := m.Called(ctx)
	return args.Get(0).([]service.TransactionTypeWithRanges), args.Error(1)
}

func (m *MockTransactionTypeService) Create(ctx context.Context, actor *uuid.UUID, req service.CreateTransactionTypeRequest) (*service.TransactionTypeResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransactionTypeResponse), args.Error(1)
}

func (m *MockTransactionTypeService) List(ctx context.Context, actor uuid.UUID, page, limit int) ([]service.TransactionTypeResponse, int64, error) {
	args := m.Called(ctx, actor, page, limit)
	return args.Get(0).([]service.TransactionTypeResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionTypeService) Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*service.TransactionTypeResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransactionTypeResponse), args.Error(1)
}

func (m *MockTransactionTypeService) Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req service.UpdateTransactionTypeRequest) (*service.TransactionTypeResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransactionTypeResponse), args.Error(1)
}

func (m *MockTransactionTypeService) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

// MockApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) result(args mock.Arguments) (*service.ChargeRangeResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChargeRangeResponse), args.Error(1)
}

func (m *MockApprovalService) Submit(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*service.ChargeRangeResponse, error) {
	return m.result(m.Called(ctx, actor, id))
}

func (m *MockApprovalService) ApproveByFinance(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*service.ChargeRangeResponse, error) {
	return m.result(m.Called(ctx, actor, id))
}

func (m *MockApprovalService) ApproveByCEO(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*service.ChargeRangeResponse, error) {
	return m.result(m.Called(ctx, actor, id))
}

func (m *MockApprovalService) Reject(ctx context.Context, actor uuid.UUID, id uuid.UUID, reason string) (*service.ChargeRangeResponse, error) {
	return m.result(m.Called(ctx, actor, id, reason))
}
