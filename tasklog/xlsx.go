package tasklog

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/warp/variable-pay/generic"
)

// ReadXLSX reads an export uploaded as an XLSX workbook. Only the first
// sheet is read.
func ReadXLSX(data []byte) (Result, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return Result{}, &generic.InvalidInputError{Field: "file", Reason: "not a readable xlsx workbook"}
	}
	return readWorkbook(f)
}

// ReadXLSXFile reads an XLSX export from disk.
func ReadXLSXFile(path string) (Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Result{}, eris.Wrapf(err, "tasklog: open %s", path)
	}
	return readWorkbook(f)
}

func readWorkbook(f *xlsx.File) (Result, error) {
	if len(f.Sheets) == 0 {
		return Result{}, &generic.InvalidInputError{Field: "file", Reason: "workbook has no sheets"}
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return Result{}, &generic.InvalidInputError{Field: "file", Reason: "empty export"}
	}

	header := rowToStrings(sheet.Rows[0])
	records := make([]record, 0, len(sheet.Rows)-1)
	for i, row := range sheet.Rows[1:] {
		records = append(records, record{line: i + 2, fields: rowToStrings(row)})
	}
	return buildResult(header, records)
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
