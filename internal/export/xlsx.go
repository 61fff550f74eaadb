// Package export renders job listings as XLSX workbooks.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/teddynote/parser-client/internal/client"
)

// JobsXLSX returns an XLSX workbook (as bytes) listing the given jobs in the
// order provided.
func JobsXLSX(jobs []client.Job) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Jobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"Job ID", "Status", "Message", "Filename", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, j.ID)
		write(2, j.Status)
		write(3, j.Message)
		write(4, j.Filename)
		write(5, j.CreatedAt)
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 38) // job id
	_ = f.SetColWidth(sheet, "B", "B", 14) // status
	_ = f.SetColWidth(sheet, "C", "C", 40) // message
	_ = f.SetColWidth(sheet, "D", "D", 30) // filename
	_ = f.SetColWidth(sheet, "E", "E", 22) // created at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
