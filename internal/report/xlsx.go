package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(w io.Writer, t table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.title
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	headers := make([]any, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.title
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, c.width*0.6); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	if err := styleRow(f, sheet, 1, len(t.columns), bold); err != nil {
		return err
	}

	n := 2
	for _, cells := range t.rows {
		if err := setRow(f, sheet, n, cells); err != nil {
			return err
		}
		n++
	}
	if t.footer != nil {
		if err := setRow(f, sheet, n, t.footer); err != nil {
			return err
		}
		if err := styleRow(f, sheet, n, len(t.columns), bold); err != nil {
			return err
		}
	}

	if len(t.rows) > 0 {
		for i, c := range t.columns {
			if !c.numeric {
				continue
			}
			from, _ := excelize.CoordinatesToCellName(i+1, 2)
			to, _ := excelize.CoordinatesToCellName(i+1, len(t.rows)+1)
			if err := f.SetCellStyle(sheet, from, to, money); err != nil {
				return fmt.Errorf("styling cells: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	values := make([]any, len(cells))
	for i, v := range cells {
		// Spreadsheets hold numbers as floats.
		if d, ok := v.(decimal.Decimal); ok {
			values[i] = d.InexactFloat64()
			continue
		}
		values[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, width, style int) error {
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		return fmt.Errorf("styling row %d: %w", row, err)
	}
	return nil
}
