package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	uptime "store-monitor/internal/uptime/domain"
)

var reportColumns = []string{
	"Store",
	"Up last hour (min)",
	"Up last day (h)",
	"Up last week (h)",
	"Down last hour (min)",
	"Down last day (h)",
	"Down last week (h)",
}

// BuildReportPDF renders a finished report as a landscape table.
func BuildReportPDF(job *uptime.Job, rows []uptime.ReportRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Store Uptime Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Report: %s", job.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Completed: %s", job.UpdatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Stores: %d", len(rows)))
	pdf.Ln(8)

	widths := []float64{70, 30, 30, 30, 34, 34, 34}
	pdf.SetFont("Arial", "B", 9)
	for i, title := range reportColumns {
		pdf.CellFormat(widths[i], 6, title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		for i, value := range row.Record() {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a finished report as a workbook with a summary
// sheet and one row per store.
func BuildReportXLSX(job *uptime.Job, rows []uptime.ReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	storesSheet := "stores"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(storesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Store Uptime Report")
	_ = f.SetCellValue(summarySheet, "A3", "Report")
	_ = f.SetCellValue(summarySheet, "B3", job.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Status")
	_ = f.SetCellValue(summarySheet, "B4", string(job.Status))
	_ = f.SetCellValue(summarySheet, "A5", "Completed")
	_ = f.SetCellValue(summarySheet, "B5", job.UpdatedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Stores")
	_ = f.SetCellValue(summarySheet, "B6", len(rows))

	for i, title := range uptime.ReportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(storesSheet, cell, title)
	}
	for i, row := range rows {
		line := i + 2
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("A%d", line), row.StoreID)
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("B%d", line), row.UptimeLastHour)
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("C%d", line), row.UptimeLastDay.InexactFloat64())
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("D%d", line), row.UptimeLastWeek.InexactFloat64())
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("E%d", line), row.DowntimeLastHour)
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("F%d", line), row.DowntimeLastDay.InexactFloat64())
		_ = f.SetCellValue(storesSheet, fmt.Sprintf("G%d", line), row.DowntimeLastWeek.InexactFloat64())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
