package repository

import (
	"context"
	"fmt"

	"chargedesk/internal/model"

	"gorm.io/gorm"
)

// ScheduleStats summarises the charge schedule for the dashboard.
type ScheduleStats struct {
	TotalTypes    int64
	ActiveTypes   int64
	TotalRanges   int64
	ActiveRanges  int64
	DistinctTaxes int64
	StatusCounts  map[string]int64
}

type StatisticsRepository interface {
	ScheduleOverview(ctx context.Context) (ScheduleStats, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) ScheduleOverview(ctx context.Context) (ScheduleStats, error) {
	stats := ScheduleStats{StatusCounts: make(map[string]int64, len(model.ApprovalStatuses))}
	db := GetDB(ctx, r.db)

	if err := db.Model(&model.TransactionType{}).Count(&stats.TotalTypes).Error; err != nil {
		return stats, fmt.Errorf("failed to count transaction types: %w", err)
	}
	if err := db.Model(&model.TransactionType{}).Where("is_active = ?", true).Count(&stats.ActiveTypes).Error; err != nil {
		return stats, fmt.Errorf("failed to count active transaction types: %w", err)
	}

	eligible := func() *gorm.DB {
		return db.Model(&model.ChargeRange{}).Where("is_active = ? AND approval_status = ?", true, model.ApprovalApproved)
	}
	if err := eligible().Count(&stats.ActiveRanges).Error; err != nil {
		return stats, fmt.Errorf("failed to count active charge ranges: %w", err)
	}
	if err := eligible().Distinct("tax_type").Count(&stats.DistinctTaxes).Error; err != nil {
		return stats, fmt.Errorf("failed to count tax types: %w", err)
	}

	var rows []struct {
		ApprovalStatus string
		Count          int64
	}
	if err := db.Model(&model.ChargeRange{}).
		Select("approval_status, COUNT(*) as count").
		Group("approval_status").
		Scan(&rows).Error; err != nil {
		return stats, fmt.Errorf("failed to count charge ranges by status: %w", err)
	}
	for _, s := range model.ApprovalStatuses {
		stats.StatusCounts[s] = 0
	}
	for _, row := range rows {
		stats.StatusCounts[row.ApprovalStatus] = row.Count
		stats.TotalRanges += row.Count
	}

	return stats, nil
}
