package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pqmeta/pkg/contracts/domain"
)

const headerFill = "D7E4BC"

// XLSXEncoder writes every sheet of a Document into one workbook
type XLSXEncoder struct{}

// NewXLSXEncoder creates a workbook encoder
func NewXLSXEncoder() *XLSXEncoder {
	return &XLSXEncoder{}
}

// Format returns xlsx
func (e *XLSXEncoder) Format() domain.ReportFormat {
	return domain.ReportFormatExcel
}

// Encode writes the workbook to w
func (e *XLSXEncoder) Encode(w io.Writer, doc *Document) error {
	if doc == nil || len(doc.Sheets) == 0 {
		return ErrEmptyBatch
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range doc.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, &sheet, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet *Sheet, headerStyle int) error {
	name := sheet.Name
	for c, col := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, col.Header); err != nil {
			return err
		}
		if col.Width > 0 {
			letter, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return err
			}
			if err := f.SetColWidth(name, letter, letter, col.Width); err != nil {
				return err
			}
		}
	}

	for r, row := range sheet.Rows {
		for c, value := range row {
			if value.Kind == CellEmpty {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value.Value()); err != nil {
				return err
			}
		}
	}

	if len(sheet.Columns) == 0 {
		return nil
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(sheet.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", lastHeader, headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	lastCell, err := excelize.CoordinatesToCellName(len(sheet.Columns), len(sheet.Rows)+1)
	if err != nil {
		return err
	}
	return f.AutoFilter(name, "A1:"+lastCell, nil)
}
