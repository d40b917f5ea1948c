package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvelasco/contable-server/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

func charge(id int64, client, date, docto, amount string) models.Transaction {
	return models.Transaction{
		ID:         id,
		ClientName: client,
		Date:       dayPtr(date),
		Kind:       models.KindCharge,
		Amount:     dec(amount),
		Docto:      docto,
	}
}

func payment(id int64, client, date, docto, amount string) models.Transaction {
	t := charge(id, client, date, docto, amount)
	t.Kind = models.KindPayment
	return t
}

func TestBuildRunningBalancePerClient(t *testing.T) {
	transactions := []models.Transaction{
		charge(1, "ACME", "2025-01-01", "NC 1", "100"),
		payment(2, "ACME", "2025-01-02", "RC 2", "30"),
		payment(3, "BETA", "2025-01-01", "RC 9", "40"),
	}

	result := Build(transactions, nil, BuildOptions{Today: day("2025-01-10")})
	require.Len(t, result.Rows, 3)

	assert.True(t, result.Rows[0].Balance.Equal(dec("-100")))
	assert.True(t, result.Rows[1].Balance.Equal(dec("-70")))
	assert.True(t, result.Rows[2].Balance.Equal(dec("40")))

	assert.True(t, result.TotalDebit.Equal(dec("100")))
	assert.True(t, result.TotalCredit.Equal(dec("70")))
	// one figure per client: ACME -70, BETA 40
	assert.True(t, result.TotalBalance.Equal(dec("-30")), "total = %s", result.TotalBalance)
	assert.Equal(t, []string{"ACME", "BETA"}, result.Clients)
}

func TestBuildOpeningRowComesFirst(t *testing.T) {
	transactions := []models.Transaction{
		charge(1, "ACME", "2025-01-05", "NC 1", "100"),
	}
	balances := []models.OpeningBalance{
		{ClientName: "ACME", Amount: dec("50"), Side: models.SideCredit, Date: day("2024-12-31")},
	}

	for _, descending := range []bool{false, true} {
		result := Build(transactions, balances, BuildOptions{Descending: descending, Today: day("2025-01-10")})
		require.Len(t, result.Rows, 2, "descending=%t", descending)

		assert.True(t, result.Rows[0].Opening)
		assert.Equal(t, OpeningDocto, result.Rows[0].Docto)
		assert.True(t, result.Rows[0].Balance.Equal(dec("50")))
		assert.True(t, result.Rows[1].Balance.Equal(dec("-50")))
	}
}

func TestBuildDebitOpeningBalanceIsNegative(t *testing.T) {
	balances := []models.OpeningBalance{
		{ClientName: "ACME", Amount: dec("80"), Side: models.SideDebit, Date: day("2024-12-31")},
	}

	result := Build(nil, balances, BuildOptions{Today: day("2025-01-10")})
	require.Len(t, result.Rows, 1)
	assert.True(t, result.Rows[0].Balance.Equal(dec("-80")))
	assert.True(t, result.TotalBalance.Equal(dec("-80")))
}

func TestBuildManualOrderBeatsDate(t *testing.T) {
	first := int64(1)
	second := int64(2)
	late := charge(1, "ACME", "2025-03-01", "NC 9", "10")
	late.OrderIndex = &first
	early := charge(2, "ACME", "2025-01-01", "NC 1", "20")
	early.OrderIndex = &second

	result := Build([]models.Transaction{early, late}, nil, BuildOptions{Today: day("2025-03-10")})
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(1), result.Rows[0].TransactionID)
	assert.Equal(t, int64(2), result.Rows[1].TransactionID)

	// manual positions do not flip with descending display order
	result = Build([]models.Transaction{early, late}, nil, BuildOptions{Descending: true, Today: day("2025-03-10")})
	assert.Equal(t, int64(1), result.Rows[0].TransactionID)
}

func TestBuildUndatedRowsSortLast(t *testing.T) {
	undated := models.Transaction{ID: 1, ClientName: "ACME", Kind: models.KindCharge, Amount: dec("5"), Docto: "NC 7"}
	dated := charge(2, "ACME", "2025-01-01", "NC 1", "10")

	result := Build([]models.Transaction{undated, dated}, nil, BuildOptions{Today: day("2025-01-10")})
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(2), result.Rows[0].TransactionID)
	assert.Equal(t, int64(1), result.Rows[1].TransactionID)
}

func TestBuildDateFilterKeepsUndatedRows(t *testing.T) {
	undated := models.Transaction{ID: 1, ClientName: "ACME", Kind: models.KindCharge, Amount: dec("5")}
	inRange := charge(2, "ACME", "2025-02-01", "NC 1", "10")
	before := charge(3, "ACME", "2025-01-01", "NC 2", "10")

	result := Build([]models.Transaction{undated, inRange, before}, nil, BuildOptions{
		Start: dayPtr("2025-01-15"),
		Today: day("2025-02-10"),
	})
	require.Len(t, result.Rows, 2)
	ids := []int64{result.Rows[0].TransactionID, result.Rows[1].TransactionID}
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2))
}

func TestBuildVoidedRowsExcluded(t *testing.T) {
	voided := charge(1, "ACME", "2025-01-01", "NC 1", "100")
	voidedAt := day("2025-01-05")
	voided.VoidedAt = &voidedAt

	result := Build([]models.Transaction{voided}, nil, BuildOptions{Today: day("2025-01-10")})
	assert.Empty(t, result.Rows)
	assert.True(t, result.TotalBalance.Equal(decimal.Zero))
}

func TestBuildClientFilter(t *testing.T) {
	transactions := []models.Transaction{
		charge(1, "ACME", "2025-01-01", "NC 1", "100"),
		charge(2, "BETA", "2025-01-01", "NC 2", "200"),
	}

	result := Build(transactions, nil, BuildOptions{Client: "BETA", Today: day("2025-01-10")})
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "BETA", result.Rows[0].ClientName)
	// the client option list still covers everyone
	assert.Equal(t, []string{"ACME", "BETA"}, result.Clients)
}

func TestBuildClientListSkipsFullyVoidedClients(t *testing.T) {
	active := charge(1, "ACME", "2025-01-01", "NC 1", "100")
	voided := charge(2, "BAJA", "2025-01-01", "NC 2", "50")
	voidedAt := day("2025-01-05")
	voided.VoidedAt = &voidedAt

	result := Build([]models.Transaction{active, voided}, nil, BuildOptions{Today: day("2025-01-10")})
	assert.Equal(t, []string{"ACME"}, result.Clients)
}

func TestBuildInvoiceDueDateAndOverdue(t *testing.T) {
	invoice := charge(1, "ACME", "2025-01-01", "FA 001", "100")

	result := Build([]models.Transaction{invoice}, nil, BuildOptions{Today: day("2025-02-05")})
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]

	require.NotNil(t, row.DueDate)
	assert.Equal(t, day("2025-01-31"), *row.DueDate)
	assert.Equal(t, 5, row.Days)
	assert.True(t, row.Overdue)
}

func TestBuildDaysOverdueIgnoresTodayLocation(t *testing.T) {
	invoice := charge(1, "ACME", "2025-01-01", "FA 001", "100")

	// midnight in a UTC+5 zone is still the same calendar day
	loc := time.FixedZone("UTC+5", 5*3600)
	today := time.Date(2025, 2, 5, 0, 0, 0, 0, loc)

	result := Build([]models.Transaction{invoice}, nil, BuildOptions{Today: today})
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]

	assert.Equal(t, 5, row.Days)
	assert.True(t, row.Overdue)
}

func TestBuildNonInvoiceHasNoDueDate(t *testing.T) {
	note := charge(1, "ACME", "2025-01-01", "NC 001", "100")

	result := Build([]models.Transaction{note}, nil, BuildOptions{Today: day("2025-06-01")})
	require.Len(t, result.Rows, 1)
	assert.Nil(t, result.Rows[0].DueDate)
	assert.False(t, result.Rows[0].Overdue)
	assert.Equal(t, 0, result.Rows[0].Days)
}

func TestBuildPaidInvoiceNeverOverdue(t *testing.T) {
	invoice := charge(1, "ACME", "2025-01-01", "FA 001", "100")
	paid := day("2025-02-01")
	invoice.PaidOn = &paid

	result := Build([]models.Transaction{invoice}, nil, BuildOptions{Today: day("2025-06-01")})
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]

	require.NotNil(t, row.DueDate)
	assert.Equal(t, 0, row.Days)
	assert.False(t, row.Overdue)
}

func TestBuildCustomGracePeriod(t *testing.T) {
	invoice := charge(1, "ACME", "2025-01-01", "FA 001", "100")

	result := Build([]models.Transaction{invoice}, nil, BuildOptions{GraceDays: 60, Today: day("2025-02-05")})
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]

	require.NotNil(t, row.DueDate)
	assert.Equal(t, day("2025-03-02"), *row.DueDate)
	assert.False(t, row.Overdue)
}

func TestBuildRoundsEachStep(t *testing.T) {
	transactions := []models.Transaction{
		payment(1, "ACME", "2025-01-01", "RC 1", "10.005"),
		payment(2, "ACME", "2025-01-02", "RC 2", "10.005"),
	}

	result := Build(transactions, nil, BuildOptions{Today: day("2025-01-10")})
	require.Len(t, result.Rows, 2)
	// each amount rounds to 10.01 before accumulating
	assert.True(t, result.Rows[0].Balance.Equal(dec("10.01")))
	assert.True(t, result.Rows[1].Balance.Equal(dec("20.02")))
}

func TestBuildEmptyInput(t *testing.T) {
	result := Build(nil, nil, BuildOptions{})
	assert.Empty(t, result.Rows)
	assert.True(t, result.TotalDebit.Equal(decimal.Zero))
	assert.True(t, result.TotalCredit.Equal(decimal.Zero))
	assert.True(t, result.TotalBalance.Equal(decimal.Zero))
	assert.Empty(t, result.Clients)
}

func TestBuildBalanceOnlyClientStillListed(t *testing.T) {
	transactions := []models.Transaction{
		charge(1, "ZETA", "2025-01-01", "NC 1", "10"),
	}
	balances := []models.OpeningBalance{
		{ClientName: "ALFA", Amount: dec("25"), Side: models.SideCredit, Date: day("2024-12-31")},
	}

	result := Build(transactions, balances, BuildOptions{Today: day("2025-01-10")})
	require.Len(t, result.Rows, 2)
	// ALFA's synthetic row sorts before ZETA's transaction
	assert.Equal(t, "ALFA", result.Rows[0].ClientName)
	assert.True(t, result.Rows[0].Opening)
	assert.Equal(t, "ZETA", result.Rows[1].ClientName)
	assert.True(t, result.TotalBalance.Equal(dec("15")))
}
