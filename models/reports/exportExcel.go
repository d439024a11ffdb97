package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// writeSheet fills Sheet1 with a heading row followed by one row per
// record and streams the workbook to w.
func writeSheet(w io.Writer, headings []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	rowNo := 2
	for _, row := range rows {
		col := 'A'
		for _, value := range row {
			f.SetCellValue(sheetName, string(col)+fmt.Sprint(rowNo), value)
			col++
		}
		rowNo++
	}

	return f.Write(w)
}

// ExportInventoryReportExcel renders the caller-scoped inventory report as
// an xlsx workbook.
func ExportInventoryReportExcel(ctx context.Context, w io.Writer) error {
	data, err := GetInventoryReport(ctx)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(data))
	for _, d := range data {
		rows = append(rows, []interface{}{d.Model, d.Name, d.Location, d.Status, d.Count, d.OnLoan})
	}
	return writeSheet(w, []string{"Model", "Name", "Location", "Status", "Count", "OnLoan"}, rows)
}

// ExportEmiDueReportExcel renders the active-loans report as an xlsx
// workbook.
func ExportEmiDueReportExcel(ctx context.Context, w io.Writer) error {
	data, err := GetEmiDueReport(ctx)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(data))
	for _, d := range data {
		nextDue := ""
		if d.NextEmiDate != nil {
			nextDue = d.NextEmiDate.Format("2006-01-02")
		}
		rows = append(rows, []interface{}{
			d.InvoiceNumber, d.CustomerName, d.CustomerPhone, d.StoreName,
			d.EmiAmount.String(), d.InstallmentsPaid, d.TotalInstallments, nextDue, d.Overdue,
		})
	}
	return writeSheet(w, []string{
		"Invoice", "Customer", "Phone", "Store",
		"EmiAmount", "Paid", "Total", "NextDue", "Overdue",
	}, rows)
}
