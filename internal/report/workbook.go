package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// WriteWorkbook writes every table to its own sheet of an .xlsx file at path.
func WriteWorkbook(path string, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", t.Sheet, err)
		}
		if err := writeSheet(f, t, header); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	head := make([]any, len(t.Header))
	for i, h := range t.Header {
		head[i] = h
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", t.Sheet, err)
	}
	if len(t.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(t.Sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", t.Sheet, err)
		}
		lastCol, err := excelize.ColumnNumberToName(len(t.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.Sheet, "A", lastCol, 22); err != nil {
			return fmt.Errorf("size %s columns: %w", t.Sheet, err)
		}
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(t.Sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", t.Sheet, r+1, err)
		}
	}
	return nil
}
