package service

import (
	"context"
	"fmt"
	"io"

	"chargedesk/internal/apperror"
	"chargedesk/internal/logger"
	"chargedesk/internal/model"
	"chargedesk/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Charge Ranges"

var exportHeaders = []string{
	"Transaction Type", "Code", "Min Amount", "Max Amount",
	"Charge Type", "Flat Charge", "Charge %",
	"Tax Type", "Flat Tax", "Tax %",
	"Status", "Active", "Rejection Reason", "CEO Approved At",
}

// ExportService writes the charge schedule as an xlsx workbook.
type ExportService interface {
	ExportChargeRanges(ctx context.Context, actor uuid.UUID, q ChargeRangeQuery, w io.Writer) error
}

type exportService struct {
	chargeRanges repository.ChargeRangeRepository
	access       AccessControl
}

func NewExportService(chargeRanges repository.ChargeRangeRepository, access AccessControl) ExportService {
	return &exportService{chargeRanges: chargeRanges, access: access}
}

func (s *exportService) ExportChargeRanges(ctx context.Context, actor uuid.UUID, q ChargeRangeQuery, w io.Writer) error {
	if err := authorize(ctx, s.access, actor, model.PermViewChargeRange); err != nil {
		return err
	}

	// export ignores paging
	q.Page, q.Limit = 0, 0
	filter, err := q.toFilter()
	if err != nil {
		return err
	}
	ranges, _, err := s.chargeRanges.List(ctx, filter)
	if err != nil {
		return apperror.Persistence("list charge ranges", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close workbook", "error", err)
		}
	}()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := range ranges {
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", i+2), exportRow(&ranges[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

func exportRow(cr *model.ChargeRange) *[]interface{} {
	typeName, typeCode := "", ""
	if cr.TransactionType != nil {
		typeName, typeCode = cr.TransactionType.Name, cr.TransactionType.Code
	}
	optional := func(ok bool, v string) interface{} {
		if !ok {
			return ""
		}
		return v
	}
	charge, tax := cr.ServiceCharge(), cr.GovernmentTax()
	reason := ""
	if cr.RejectionReason != nil {
		reason = *cr.RejectionReason
	}
	approvedAt := ""
	if cr.CeoApprovedAt != nil {
		approvedAt = cr.CeoApprovedAt.Format("2006-01-02 15:04:05")
	}

	row := []interface{}{
		typeName, typeCode,
		cr.MinAmount.StringFixed(2), cr.MaxAmount.StringFixed(2),
		string(charge.Mode),
		optional(charge.Mode.HasFlat(), charge.Flat.StringFixed(2)),
		optional(charge.Mode.HasPercentage(), charge.Percentage.StringFixed(2)),
		string(tax.Mode),
		optional(tax.Mode.HasFlat(), tax.Flat.StringFixed(2)),
		optional(tax.Mode.HasPercentage(), tax.Percentage.StringFixed(2)),
		cr.ApprovalStatus, cr.IsActive, reason, approvedAt,
	}
	return &row
}
