package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rwpay/internal/domain/reports"
)

const (
	dataSheet    = "Data"
	summarySheet = "Ringkasan"
	headerRow    = 4
)

// XLSX writes rows to a Data sheet and the summary block to a second sheet.
// Cells with a raw value are stored as numbers so spreadsheets can sum them.
type XLSX struct{}

func (XLSX) Render(w io.Writer, t *reports.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setCell(f, dataSheet, 1, 1, t.Title); err != nil {
		return err
	}
	if err := setCell(f, dataSheet, 1, 2, t.Subtitle); err != nil {
		return err
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(dataSheet, "A1", "A1", boldStyle); err != nil {
		return fmt.Errorf("style title: %w", err)
	}

	for i, col := range t.Columns {
		if err := setCell(f, dataSheet, i+1, headerRow, col); err != nil {
			return err
		}
	}
	if len(t.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Columns), headerRow)
		if err != nil {
			return fmt.Errorf("header range: %w", err)
		}
		if err := f.SetCellStyle(dataSheet, "A4", last, boldStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	for r, row := range t.Rows {
		for c, text := range row {
			var v any = text
			if raw := t.RawAt(r, c); raw != nil {
				v = raw
			}
			if err := setCell(f, dataSheet, c+1, headerRow+1+r, v); err != nil {
				return err
			}
		}
	}

	if len(t.Summary) > 0 {
		if _, err := f.NewSheet(summarySheet); err != nil {
			return fmt.Errorf("create summary sheet: %w", err)
		}
		for i, kv := range t.Summary {
			if err := setCell(f, summarySheet, 1, i+1, kv[0]); err != nil {
				return err
			}
			if err := setCell(f, summarySheet, 2, i+1, kv[1]); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("render xlsx: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
