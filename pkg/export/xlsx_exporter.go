package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Outline"

// XLSXExporter renders a Dataset as a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the title and summary above a bold header row. Integer cells
// are stored as numbers.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	row := 1
	if data.Title != "" {
		if err := setCell(f, 1, row, data.Title); err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStyle(xlsxSheet, cell, cell, bold); err != nil {
			return nil, fmt.Errorf("style title: %w", err)
		}
		row++
	}
	for _, line := range data.Summary {
		if err := setCell(f, 1, row, line); err != nil {
			return nil, err
		}
		row++
	}
	if row > 1 {
		row++
	}

	for i, header := range data.Headers {
		if err := setCell(f, i+1, row, header); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(xlsxSheet, first, last, bold); err != nil {
		return nil, fmt.Errorf("style headers: %w", err)
	}

	for _, values := range data.Rows {
		row++
		for i, value := range values {
			if err := setCell(f, i+1, row, value); err != nil {
				return nil, err
			}
		}
	}

	for i, width := range columnWidths(data) {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(xlsxSheet, col, col, width/2); err != nil {
			return nil, fmt.Errorf("size column %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	var v interface{} = value
	if n, err := strconv.Atoi(value); err == nil {
		v = n
	}
	if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
		return fmt.Errorf("write cell %s: %w", cell, err)
	}
	return nil
}
