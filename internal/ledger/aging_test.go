package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketIndexBoundaries(t *testing.T) {
	assert.Equal(t, -1, BucketIndex(0))
	assert.Equal(t, -1, BucketIndex(-3))
	assert.Equal(t, 0, BucketIndex(1))
	assert.Equal(t, 0, BucketIndex(30))
	assert.Equal(t, 1, BucketIndex(31))
	assert.Equal(t, 1, BucketIndex(60))
	assert.Equal(t, 2, BucketIndex(61))
	assert.Equal(t, 2, BucketIndex(90))
	assert.Equal(t, 3, BucketIndex(91))
	assert.Equal(t, 3, BucketIndex(400))
}

func TestAgingWeightsByAmount(t *testing.T) {
	rows := []Row{
		{Overdue: true, Days: 10, Debit: dec("100"), Credit: decimal.Zero},
		{Overdue: true, Days: 25, Debit: dec("50"), Credit: decimal.Zero},
		{Overdue: true, Days: 45, Debit: dec("200"), Credit: decimal.Zero},
		{Overdue: true, Days: 95, Debit: dec("10"), Credit: decimal.Zero},
		{Overdue: false, Days: 0, Debit: dec("999"), Credit: decimal.Zero},
	}

	report := Aging(rows)

	assert.Equal(t, BucketLabels, report.Labels)
	assert.True(t, report.Amounts[0].Equal(dec("150")))
	assert.Equal(t, 2, report.Counts[0])
	assert.True(t, report.Amounts[1].Equal(dec("200")))
	assert.Equal(t, 1, report.Counts[1])
	assert.True(t, report.Amounts[2].Equal(decimal.Zero))
	assert.Equal(t, 0, report.Counts[2])
	assert.True(t, report.Amounts[3].Equal(dec("10")))
	assert.Equal(t, 1, report.Counts[3])
}

func TestSummarizeLastBalanceWins(t *testing.T) {
	rows := []Row{
		{ClientName: "ACME", Balance: dec("-100")},
		{ClientName: "ACME", Balance: dec("-70"), Overdue: true, Debit: dec("30")},
		{ClientName: "BETA", Balance: dec("40")},
	}

	summaries := Summarize(rows)
	require.Len(t, summaries, 2)

	assert.Equal(t, "ACME", summaries[0].Client)
	assert.True(t, summaries[0].Balance.Equal(dec("-70")))
	assert.Equal(t, 1, summaries[0].OverdueCount)
	assert.True(t, summaries[0].OverdueAmount.Equal(dec("30")))

	assert.Equal(t, "BETA", summaries[1].Client)
	assert.True(t, summaries[1].Balance.Equal(dec("40")))
	assert.Equal(t, 0, summaries[1].OverdueCount)
}

func TestTopRankingsExcludeCleanClients(t *testing.T) {
	summaries := []ClientSummary{
		{Client: "ACME", OverdueCount: 2, OverdueAmount: dec("100")},
		{Client: "BETA", OverdueCount: 0, OverdueAmount: decimal.Zero},
		{Client: "GAMA", OverdueCount: 5, OverdueAmount: dec("40")},
		{Client: "DELTA", OverdueCount: 1, OverdueAmount: dec("300")},
	}

	byAmount := TopByOverdueAmount(summaries, 2)
	require.Len(t, byAmount, 2)
	assert.Equal(t, "DELTA", byAmount[0].Client)
	assert.Equal(t, "ACME", byAmount[1].Client)

	byCount := TopByOverdueCount(summaries, 10)
	require.Len(t, byCount, 3)
	assert.Equal(t, "GAMA", byCount[0].Client)
	assert.Equal(t, "ACME", byCount[1].Client)
	assert.Equal(t, "DELTA", byCount[2].Client)
}

func TestMonthlySeriesFillsTwelveMonths(t *testing.T) {
	totals := map[string]decimal.Decimal{
		"202503": dec("1500.50"),
		"202511": dec("980"),
	}

	series := MonthlySeries(2025, totals)
	require.Len(t, series, 12)

	assert.Equal(t, "202501", series[0].Period)
	assert.True(t, series[0].Total.Equal(decimal.Zero))
	assert.Equal(t, "202503", series[2].Period)
	assert.True(t, series[2].Total.Equal(dec("1500.50")))
	assert.True(t, series[10].Total.Equal(dec("980")))
	assert.Equal(t, "202512", series[11].Period)
}
