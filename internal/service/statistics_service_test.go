package service

import (
	"context"
	"errors"
	"testing"

	"chargedesk/internal/apperror"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	overview repository.ScheduleStats
	err      error
}

func (s stubStats) ScheduleOverview(context.Context) (repository.ScheduleStats, error) {
	return s.overview, s.err
}

func TestGetDashboardStats(t *testing.T) {
	viewer := uuid.New()
	access := staticAccess{viewer: {model.PermViewDashboard}}
	counts := map[string]int64{
		model.ApprovalDraft:          4,
		model.ApprovalPendingFinance: 2,
		model.ApprovalPendingCEO:     1,
		model.ApprovalApproved:       29,
		model.ApprovalRejected:       3,
	}
	svc := NewStatisticsService(stubStats{overview: repository.ScheduleStats{
		TotalTypes:    11,
		ActiveTypes:   10,
		TotalRanges:   39,
		ActiveRanges:  29,
		DistinctTaxes: 1,
		StatusCounts:  counts,
	}}, access)

	stats, err := svc.GetDashboardStats(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{
		TotalTransactionTypes:  11,
		ActiveTransactionTypes: 10,
		TotalChargeRanges:      39,
		ActiveChargeRanges:     29,
		DistinctTaxTypes:       1,
		PendingApprovals:       3,
		ByStatus:               counts,
	}, stats)
}

func TestGetDashboardStats_Errors(t *testing.T) {
	viewer := uuid.New()
	access := staticAccess{viewer: {model.PermViewDashboard}}

	_, err := NewStatisticsService(stubStats{}, access).GetDashboardStats(context.Background(), uuid.New())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = NewStatisticsService(stubStats{err: errors.New("db down")}, access).GetDashboardStats(context.Background(), viewer)
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))
	assert.NotContains(t, apperror.PublicMessage(err), "db down")
}
