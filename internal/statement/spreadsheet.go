package statement

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-core/internal/domain"
)

// ExtractXLSX parses the first sheet of an XLSX bank export.
func ExtractXLSX(content []byte, bank domain.Bank) (*domain.Statement, error) {
	rows, err := ReadXLSXRows(content)
	if err != nil {
		return nil, err
	}
	return ExtractRows(rows, bank)
}

// ReadXLSXRows returns the rows of the first sheet of an XLSX workbook.
func ReadXLSXRows(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("ReadXLSXRows: opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ReadXLSXRows: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ReadXLSXRows: reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// ExtractXLS parses the first sheet of a legacy XLS bank export.
func ExtractXLS(content []byte, bank domain.Bank) (*domain.Statement, error) {
	rows, err := ReadXLSRows(content)
	if err != nil {
		return nil, err
	}
	return ExtractRows(rows, bank)
}

// ReadXLSRows returns the rows of the first sheet of an XLS workbook.
func ReadXLSRows(content []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("ReadXLSRows: opening workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("ReadXLSRows: workbook has no sheets")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := row.FirstCol(); c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
