package service

import (
	"context"

	"chargedesk/internal/apperror"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
)

type DashboardStats struct {
	TotalTransactionTypes  int64            `json:"total_transaction_types"`
	ActiveTransactionTypes int64            `json:"active_transaction_types"`
	TotalChargeRanges      int64            `json:"total_charge_ranges"`
	ActiveChargeRanges     int64            `json:"active_charge_ranges"`
	DistinctTaxTypes       int64            `json:"distinct_tax_types"`
	PendingApprovals       int64            `json:"pending_approvals"`
	ByStatus               map[string]int64 `json:"by_status"`
}

type StatisticsService interface {
	GetDashboardStats(ctx context.Context, actor uuid.UUID) (*DashboardStats, error)
}

type statisticsService struct {
	stats  repository.StatisticsRepository
	access AccessControl
}

func NewStatisticsService(stats repository.StatisticsRepository, access AccessControl) StatisticsService {
	return &statisticsService{stats: stats, access: access}
}

func (s *statisticsService) GetDashboardStats(ctx context.Context, actor uuid.UUID) (*DashboardStats, error) {
	if err := authorize(ctx, s.access, actor, model.PermViewDashboard); err != nil {
		return nil, err
	}

	overview, err := s.stats.ScheduleOverview(ctx)
	if err != nil {
		return nil, apperror.Persistence("load dashboard statistics", err)
	}

	return &DashboardStats{
		TotalTransactionTypes:  overview.TotalTypes,
		ActiveTransactionTypes: overview.ActiveTypes,
		TotalChargeRanges:      overview.TotalRanges,
		ActiveChargeRanges:     overview.ActiveRanges,
		DistinctTaxTypes:       overview.DistinctTaxes,
		PendingApprovals:       overview.StatusCounts[model.ApprovalPendingFinance] + overview.StatusCounts[model.ApprovalPendingCEO],
		ByStatus:               overview.StatusCounts,
	}, nil
}
