package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheetRequisitions = "Requisitions"
	exportSheetItems        = "Items"
	exportTimeLayout        = "2006-01-02 15:04"
)

var (
	requisitionColumns = []any{
		"Transaction ID", "Title", "Requested By", "Email", "Department", "Currency",
		"Total Amount", "HOD Status", "Finance Status", "Status", "Split", "Original Transaction ID",
		"Created At", "Updated At",
	}
	itemColumns = []any{"Transaction ID", "Line", "Description", "Quantity", "Unit Price", "VAT", "Total Price"}
)

type exportService struct {
	BaseService
	repo   portsrepo.RequisitionReader
	filter *workflow.RecordFilter
}

// NewExportService creates the spreadsheet export service.
func NewExportService(repo portsrepo.RequisitionReader, filter *workflow.RecordFilter) portssvc.ExportSvc {
	if filter == nil {
		filter = workflow.NewRecordFilter()
	}
	return &exportService{repo: repo, filter: filter}
}

var _ portssvc.ExportSvc = (*exportService)(nil)

// ExportRequisitionsXLSX writes two sheets: one row per requisition, and one row per line item.
func (s *exportService) ExportRequisitionsXLSX(ctx context.Context, actor domain.Identity, filter string, w io.Writer) error {
	if !actor.Role.SeesAllRecords() {
		return fmt.Errorf("role %s may not export requisitions: %w", actor.Role, apperrors.ErrForbidden)
	}

	records, err := s.repo.FindRequisitions(ctx, portsrepo.RequisitionQuery{})
	if err != nil {
		s.LogError(ctx, err, "Failed to load requisitions for export")
		return err
	}
	if strings.TrimSpace(filter) != "" {
		if records, err = s.filter.Filter(records, filter); err != nil {
			return err
		}
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.LogWarn(ctx, "Failed to close workbook", slog.String("error", cerr.Error()))
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheetRequisitions); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(exportSheetItems); err != nil {
		return fmt.Errorf("failed to add items sheet: %w", err)
	}

	if err := writeRow(f, exportSheetRequisitions, 1, requisitionColumns); err != nil {
		return err
	}
	if err := writeRow(f, exportSheetItems, 1, itemColumns); err != nil {
		return err
	}

	itemRow := 2
	for i, r := range records {
		row := []any{
			r.TransactionID, r.Title, r.RequesterName, r.RequesterEmail, r.RequestedByDepartment, r.Currency,
			r.TotalAmount.StringFixed(2), string(r.HODStatus), string(r.FinanceStatus), string(r.Status), r.IsSplit,
			derefOr(r.OriginalTransactionID), r.CreatedAt.Format(exportTimeLayout), r.UpdatedAt.Format(exportTimeLayout),
		}
		if err := writeRow(f, exportSheetRequisitions, i+2, row); err != nil {
			return err
		}
		for j, it := range r.Items {
			if err := writeRow(f, exportSheetItems, itemRow, []any{
				r.TransactionID, j + 1, it.Description, it.Quantity, it.UnitPrice.StringFixed(2), string(it.VAT), it.TotalPrice.StringFixed(2),
			}); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.SetPanes(exportSheetRequisitions, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	s.LogInfo(ctx, "Requisitions exported", slog.Int("rows", len(records)), slog.String("user_id", actor.UserID))
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to set %s row %d: %w", sheet, row, err)
	}
	return nil
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
