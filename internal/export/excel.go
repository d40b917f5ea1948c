// Package export renders ledger views as xlsx workbooks.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rvelasco/contable-server/internal/ledger"
)

var statementHeaders = []string{
	"CLIENTE", "FECHA", "DOC.", "DETALLE", "DEBITO", "CREDITO", "SALDO",
	"VENCIMIENTO", "DIAS", "MORA", "TRAMITE", "DUI/DUE",
}

// Statement writes the ledger view into a single-sheet workbook: one header
// row, one row per statement line and a closing totals row.
func Statement(result *ledger.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for col, h := range statementHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, row := range result.Rows {
		date := ""
		if row.Date != nil {
			date = row.Date.Format("2006-01-02")
		}
		due := ""
		if row.DueDate != nil {
			due = row.DueDate.Format("2006-01-02")
		}
		overdue := ""
		if row.Overdue {
			overdue = "SI"
		}

		values := []interface{}{
			row.ClientName, date, row.Docto, row.Detail,
			row.Debit.InexactFloat64(), row.Credit.InexactFloat64(), row.Balance.InexactFloat64(),
			due, row.Days, overdue, row.Agent, row.Dim,
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return nil, err
		}
	}

	totalsRow := len(result.Rows) + 2
	totals := []interface{}{
		"TOTALES", "", "", "",
		result.TotalDebit.InexactFloat64(), result.TotalCredit.InexactFloat64(), result.TotalBalance.InexactFloat64(),
		"", "", "", "", "",
	}
	if err := setRow(f, sheet, totalsRow, totals); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
