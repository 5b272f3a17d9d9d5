package receipt

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Receipts"

var exportHeaders = []any{
	"ID",
	"Uploaded At",
	"Filename",
	"Vendor",
	"Invoice Number",
	"Date",
	"Subtotal",
	"Tax",
	"Tax %",
	"Total",
	"Confidence",
	"Needs Review",
}

// writeXLSX writes one row per receipt to w as an XLSX workbook
func writeXLSX(w io.Writer, receipts []*Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("writing headers: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("styling headers: %w", err)
	}

	for i, r := range receipts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.ID,
			r.UploadedAt.UTC().Format(time.RFC3339),
			r.Filename,
			r.Data.VendorName,
			r.Data.InvoiceNumber,
			r.Data.Date,
			numberCell(r.Data.SubtotalAmount),
			numberCell(r.Data.TaxAmount),
			numberCell(r.Data.TaxPercentage),
			numberCell(r.Data.Amount),
			r.Confidence,
			r.NeedsReview,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 38) // uuid
	_ = f.SetColWidth(exportSheet, "B", "C", 24)
	_ = f.SetColWidth(exportSheet, "D", "D", 32) // vendor

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}

// numberCell leaves the cell blank for unknown values
func numberCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
