package ingest

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sheet builds an in-memory workbook from string rows, first row being the
// header row.
func sheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseBasicUpload(t *testing.T) {
	buf := sheet(t, [][]interface{}{
		{"CLIENTE", "FECHA", "DOC.", "NRO. FAC.", "DEBITO", "CREDITO", "SALDO", "TRAMITE", "DUI/DUE"},
		{"ACME SRL", "2025-01-15", "FA", "001", "1500.50", "", "1500.50", "JPV", "C-1234"},
		{"ACME SRL", "2025-02-01", "RC", "002", "", "500", "1000.50", "", ""},
	})

	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "ACME SRL", first.Client)
	assert.Equal(t, "2025-01-15", first.Date)
	assert.Equal(t, "FA 001", first.Docto)
	assert.Equal(t, "ACME SRL - FA 001", first.Detail)
	assert.True(t, first.Debit.Equal(dec("1500.50")))
	assert.True(t, first.Credit.Equal(decimal.Zero))
	assert.Equal(t, "JPV", first.Agent)
	assert.Equal(t, "C-1234", first.Dim)
	assert.Equal(t, "2025-02-14", first.DueDate, "invoice falls due 30 days later")

	second := records[1]
	assert.Equal(t, "RC 002", second.Docto)
	assert.True(t, second.Credit.Equal(dec("500")))
	assert.Empty(t, second.DueDate, "receipts carry no due date")
}

func TestParseHeaderAliases(t *testing.T) {
	buf := sheet(t, [][]interface{}{
		{"cliente", " Fecha ", "DOCTO", "DEBE", "HABER"},
		{"BETA", "15/01/2025", "FA", "100", ""},
	})

	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "BETA", records[0].Client)
	assert.Equal(t, "2025-01-15", records[0].Date, "DD/MM/YYYY is accepted")
	assert.Equal(t, "FA", records[0].Docto)
	assert.True(t, records[0].Debit.Equal(dec("100")))
}

func TestParseAliasDoesNotShadowCanonicalColumn(t *testing.T) {
	// Both DEBE and DEBITO present: DEBITO stays canonical, DEBE is ignored.
	buf := sheet(t, [][]interface{}{
		{"CLIENTE", "FECHA", "DEBITO", "DEBE"},
		{"ACME", "2025-01-01", "10", "999"},
	})

	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Debit.Equal(dec("10")))
}

func TestParseMissingColumnsRejectsFile(t *testing.T) {
	buf := sheet(t, [][]interface{}{
		{"FECHA", "SALDO"},
		{"2025-01-01", "100"},
	})

	_, err := Parse(buf)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"CLIENTE", "DEBITO/CREDITO"}, schemaErr.Missing)
	assert.Contains(t, schemaErr.Error(), "CLIENTE")
}

func TestParseConceptFallbackDetail(t *testing.T) {
	buf := sheet(t, [][]interface{}{
		{"CLIENTE", "FECHA", "DEBITO", "CONCEPTO", "MERCADERIA"},
		{"", "2025-01-01", "50", "FLETE", "CAJAS"},
	})

	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "FLETE - CAJAS", records[0].Detail)
}

func TestNormalizeDateLayouts(t *testing.T) {
	assert.Equal(t, "2025-01-15", NormalizeDate("2025-01-15"))
	assert.Equal(t, "2025-01-15", NormalizeDate("15/01/2025"))
	assert.Equal(t, "2025-01-15", NormalizeDate("15-01-2025"))
	assert.Equal(t, "2025-01-15", NormalizeDate("2025/01/15"))
	assert.Equal(t, "", NormalizeDate("   "))
	// unparseable input passes through trimmed
	assert.Equal(t, "enero 15", NormalizeDate(" enero 15 "))
}

func TestSafeNumberLenientParsing(t *testing.T) {
	assert.True(t, SafeNumber("1234.56").Equal(dec("1234.56")))
	assert.True(t, SafeNumber("1.234.567,89").Equal(dec("1234567.89")), "European thousands format")
	assert.True(t, SafeNumber("Bs 1500").Equal(dec("1500")), "currency prefixes are stripped")
	assert.True(t, SafeNumber("-42").Equal(dec("-42")))
	assert.True(t, SafeNumber("").Equal(decimal.Zero))
	assert.True(t, SafeNumber("n/a").Equal(decimal.Zero))
}

func TestParseShortRowsPadWithBlanks(t *testing.T) {
	buf := sheet(t, [][]interface{}{
		{"CLIENTE", "FECHA", "DEBITO", "CREDITO"},
		{"ACME"},
	})

	records, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ACME", records[0].Client)
	assert.Empty(t, records[0].Date)
	assert.True(t, records[0].Debit.Equal(decimal.Zero))
}
