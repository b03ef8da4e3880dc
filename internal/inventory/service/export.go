package service

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReportSheet is the sheet name of exported reports
const ReportSheet = "Report"

var reportHeaders = []interface{}{"Item", "Batch", "Batch Quantity", "Disbursed", "Remaining"}

// WriteReportXLSX renders the report rows as an xlsx workbook
func WriteReportXLSX(w io.Writer, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := f.SetSheetRow(ReportSheet, "A1", &reportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(reportHeaders))
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(ReportSheet, "A1", lastCol+"1", boldStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range report.Data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		values := []interface{}{r.ItemName, r.BatchName, r.BatchQuantity, r.TotalDisbursed, r.TotalRemaining}
		if err := f.SetSheetRow(ReportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ReportSheet, "A", "B", 28); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if err := f.SetColWidth(ReportSheet, "C", "E", 16); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
