package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvelasco/contable-server/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecalculateBasicChain(t *testing.T) {
	item := &models.PayrollItem{
		SeniorityBonus: dec("100"),
	}

	totals := Recalculate(dec("3000"), item)

	assert.True(t, totals.GrossPay.Equal(dec("3100")), "gross = %s", totals.GrossPay)
	assert.True(t, totals.MandatoryContrib.Equal(dec("394.01")), "contrib = %s", totals.MandatoryContrib)
	assert.True(t, totals.TotalContrib.Equal(dec("394.01")))
	assert.True(t, totals.TotalAdvances.Equal(decimal.Zero))
	assert.True(t, totals.TotalDeductions.Equal(decimal.Zero))
	assert.True(t, totals.TotalAllDeductions.Equal(dec("394.01")))
	assert.True(t, totals.NetPay.Equal(dec("2705.99")), "net = %s", totals.NetPay)
}

func TestRecalculateAllDeductionGroups(t *testing.T) {
	item := &models.PayrollItem{
		SeniorityBonus: dec("200"),
		OtherIncome:    dec("50.50"),
		Solidarity:     dec("10"),
		AdvanceOnPay:   dec("500"),
		CashAdvance:    dec("100"),
		Loan:           dec("250"),
		Entel:          dec("35"),
		OtherDeduction: dec("15"),
		DelayPenalty:   dec("5"),
		WithholdingTax: dec("20"),
	}

	totals := Recalculate(dec("4000"), item)

	// gross 4250.50, contrib 4250.50*0.1271 = 540.24 (rounded)
	assert.True(t, totals.GrossPay.Equal(dec("4250.50")))
	assert.True(t, totals.MandatoryContrib.Equal(dec("540.24")))
	assert.True(t, totals.TotalContrib.Equal(dec("550.24")))
	assert.True(t, totals.TotalAdvances.Equal(dec("850")))
	assert.True(t, totals.TotalDeductions.Equal(dec("75")))
	assert.True(t, totals.TotalAllDeductions.Equal(dec("1475.24")))
	assert.True(t, totals.NetPay.Equal(dec("2775.26")))
}

func TestRecalculateNetNeverNegative(t *testing.T) {
	item := &models.PayrollItem{Loan: dec("5000")}

	totals := Recalculate(dec("100"), item)

	assert.True(t, totals.NetPay.Equal(decimal.Zero), "net = %s", totals.NetPay)
}

func TestApplyCopiesTotalsOntoItem(t *testing.T) {
	item := &models.PayrollItem{OtherIncome: dec("100")}
	totals := Recalculate(dec("2500"), item)
	totals.Apply(item)

	assert.True(t, item.GrossPay.Equal(dec("2600")))
	assert.True(t, item.NetPay.Equal(totals.NetPay))
	assert.True(t, item.TotalAllDeduction.Equal(totals.TotalAllDeductions))
}

func TestParseFieldValueRejectsUnknownField(t *testing.T) {
	_, err := ParseFieldValue("haber_basico", 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = ParseFieldValue("total_ganado", 100)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestParseFieldValueTolerantNumbers(t *testing.T) {
	v, err := ParseFieldValue("quincena", "1 234,50")
	require.NoError(t, err)
	assert.True(t, v.(decimal.Decimal).Equal(dec("1234.50")))

	v, err = ParseFieldValue("anticipos", "garbage")
	require.NoError(t, err)
	assert.True(t, v.(decimal.Decimal).Equal(decimal.Zero))

	v, err = ParseFieldValue("prestamos", 250.75)
	require.NoError(t, err)
	assert.True(t, v.(decimal.Decimal).Equal(dec("250.75")))
}

func TestParseFieldValueDaysWorked(t *testing.T) {
	v, err := ParseFieldValue("dias_trab", "30")
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = ParseFieldValue("dias_trab", "not a number")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	v, err = ParseFieldValue("dias_trab", float64(22))
	require.NoError(t, err)
	assert.Equal(t, 22, v)
}
