package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/creditbook/internal/money"
)

const debtorsSheet = "Debtors"

var debtorHeaders = []string{
	"Customer", "Phone", "Outstanding", "Next due date", "Status", "Ageing", "Overdue credits", "Last activity",
}

// ExportDebtors формирует XLSX со списком должников в запрошенном порядке.
func (s *Service) ExportDebtors(ctx context.Context, retailerID int64, sort, order string) ([]byte, error) {
	debtors, _, err := s.ListDebtors(ctx, retailerID, sort, order)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", debtorsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("create amount style: %w", err)
	}

	if err := f.SetSheetRow(debtorsSheet, "A1", &debtorHeaders); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(debtorsSheet, 1, 1, header); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	var total int64
	for i, d := range debtors {
		var due, status, bucket string
		if d.NextDueDate != nil {
			due = d.NextDueDate.Format("2006-01-02")
		}
		if d.Ageing != nil {
			status = string(d.Ageing.Status)
			bucket = string(d.Ageing.Bucket)
		}

		row := []any{
			d.Name,
			d.Phone,
			money.FromMinor(d.Outstanding).InexactFloat64(),
			due,
			status,
			bucket,
			d.OverdueCount,
			d.LastActivity.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(debtorsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
		total += d.Outstanding
	}

	totalRow := len(debtors) + 2
	labelCell, _ := excelize.CoordinatesToCellName(1, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(3, totalRow)
	if err := f.SetCellValue(debtorsSheet, labelCell, "Total"); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}
	if err := f.SetCellValue(debtorsSheet, totalCell, money.FromMinor(total).InexactFloat64()); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}
	if err := f.SetCellStyle(debtorsSheet, labelCell, labelCell, header); err != nil {
		return nil, fmt.Errorf("style total: %w", err)
	}

	firstAmount, _ := excelize.CoordinatesToCellName(3, 2)
	if err := f.SetCellStyle(debtorsSheet, firstAmount, totalCell, amount); err != nil {
		return nil, fmt.Errorf("style amounts: %w", err)
	}
	if err := f.SetColWidth(debtorsSheet, "A", "H", 18); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
