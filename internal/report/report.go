// Package report exports the change report spreadsheet offered for
// download next to the state file.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/insertwatch/internal/snapshot"
)

// SheetName is the worksheet holding the report.
const SheetName = "異動報表"

// Header is the report's first row.
var Header = []string{"院內代碼", "藥名", "許可證字號", "異動狀態", "異動日期", "衛福部連結"}

// Status labels for the change column.
const (
	StatusChanged   = "有異動"
	StatusUnchanged = "無"
)

// WriteXLSX writes one row per record, in order, to a new workbook at path.
func WriteXLSX(path string, records []snapshot.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := writeRow(f, 1, Header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range records {
		status := StatusUnchanged
		if r.Changed {
			status = StatusChanged
		}
		row := i + 2
		if err := writeRow(f, row, []string{r.Code, r.Name, r.License, status, r.LastChangeDate, r.URL}); err != nil {
			return err
		}
		if r.URL != "" {
			cell, _ := excelize.CoordinatesToCellName(len(Header), row)
			if err := f.SetCellHyperLink(SheetName, cell, r.URL, "External"); err != nil {
				return fmt.Errorf("link %s: %w", cell, err)
			}
		}
	}

	widths := []float64{12, 30, 24, 10, 12, 48}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
