// Package ledger turns a client's transactions and opening balance into an
// ordered statement with running balances, due dates and overdue flags, and
// summarizes the result for dashboard reporting. All computation is pure and
// in-memory; "today" is supplied by the caller.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvelasco/contable-server/internal/models"
)

// OpeningDocto is the document code of the synthetic opening-balance row.
const OpeningDocto = "SALDO ANTERIOR"

// DefaultGraceDays is the overdue grace period applied when the caller does
// not override it with a stored client preference.
const DefaultGraceDays = 30

// Row is one statement line: a transaction or a synthetic opening row.
type Row struct {
	TransactionID int64           `json:"transactionId,omitempty"`
	ClientName    string          `json:"clientName"`
	Date          *time.Time      `json:"date,omitempty"`
	Docto         string          `json:"docto"`
	Detail        string          `json:"detail"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Days          int             `json:"days"`
	Overdue       bool            `json:"overdue"`
	Agent         string          `json:"agent"`
	Dim           string          `json:"dim"`
	OrderIndex    *int64          `json:"orderIndex,omitempty"`
	MarkDebit     int             `json:"markDebit"`
	MarkCredit    int             `json:"markCredit"`
	MarkBalance   int             `json:"markBalance"`
	Opening       bool            `json:"opening"`

	movement decimal.Decimal
	paidOn   *time.Time
}

// BuildOptions controls filtering, ordering and the overdue computation.
type BuildOptions struct {
	Client     string     // exact client name filter, blank for all
	Start, End *time.Time // inclusive date-range bounds on the transaction date
	Descending bool       // display direction for the date/docto tiers
	GraceDays  int        // overdue grace period, 0 means DefaultGraceDays
	Today      time.Time  // zero value means time.Now
}

// Result is the full ledger build output.
type Result struct {
	Rows         []Row           `json:"rows"`
	TotalDebit   decimal.Decimal `json:"totalDebit"`
	TotalCredit  decimal.Decimal `json:"totalCredit"`
	TotalBalance decimal.Decimal `json:"totalBalance"`
	Clients      []string        `json:"clients"` // distinct client names before filtering
}

// Build computes the ordered ledger. Balances are cumulative per client over
// the computation order (client, manual position, date, docto — nulls last),
// rounded to 2 decimals after each step. The returned rows follow the display
// order: opening rows first, then manual position, then date and docto in the
// requested direction.
func Build(transactions []models.Transaction, balances []models.OpeningBalance, opts BuildOptions) Result {
	if opts.GraceDays <= 0 {
		opts.GraceDays = DefaultGraceDays
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	today := truncateToDay(opts.Today)

	clientOptions := distinctClients(transactions)

	rows := make([]Row, 0, len(transactions))
	for _, t := range transactions {
		if t.VoidedAt != nil {
			continue
		}
		if opts.Client != "" && strings.TrimSpace(t.ClientName) != opts.Client {
			continue
		}
		// Date bounds only apply to rows with a date; undated rows stay in.
		if t.Date != nil {
			if opts.Start != nil && t.Date.Before(*opts.Start) {
				continue
			}
			if opts.End != nil && t.Date.After(*opts.End) {
				continue
			}
		}
		rows = append(rows, rowFromTransaction(t))
	}

	sortForComputation(rows)

	balanceByClient := make(map[string]models.OpeningBalance, len(balances))
	for _, b := range balances {
		balanceByClient[b.ClientName] = b
	}

	rows = withOpeningRows(rows, balanceByClient, opts.Client)

	// Running balance, cumulative per client, rounded at every step.
	running := make(map[string]decimal.Decimal)
	lastBalance := make(map[string]decimal.Decimal)
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i := range rows {
		name := rows[i].ClientName
		sum := running[name].Add(rows[i].movement).Round(2)
		running[name] = sum
		rows[i].Balance = sum
		lastBalance[name] = sum
		totalDebit = totalDebit.Add(rows[i].Debit)
		totalCredit = totalCredit.Add(rows[i].Credit)
		applyDueDate(&rows[i], today, opts.GraceDays)
	}

	// Total balance is one figure per client (its last row), summed.
	totalBalance := decimal.Zero
	for _, b := range lastBalance {
		totalBalance = totalBalance.Add(b)
	}

	sortForDisplay(rows, opts.Descending)

	return Result{
		Rows:         rows,
		TotalDebit:   totalDebit.Round(2),
		TotalCredit:  totalCredit.Round(2),
		TotalBalance: totalBalance.Round(2),
		Clients:      clientOptions,
	}
}

func rowFromTransaction(t models.Transaction) Row {
	debit := decimal.Zero
	credit := decimal.Zero
	if t.Kind == models.KindCharge {
		debit = t.Amount.Round(2)
	} else {
		credit = t.Amount.Round(2)
	}
	detail := t.Description
	client := strings.TrimSpace(t.ClientName)
	docto := strings.TrimSpace(t.Docto)
	if client != "" || docto != "" {
		detail = strings.Trim(client+" - "+docto, " -")
	}
	return Row{
		TransactionID: t.ID,
		ClientName:    client,
		Date:          t.Date,
		Docto:         t.Docto,
		Detail:        detail,
		Debit:         debit,
		Credit:        credit,
		Agent:         t.Agent,
		Dim:           t.Dim,
		OrderIndex:    t.OrderIndex,
		MarkDebit:     t.MarkDebit,
		MarkCredit:    t.MarkCredit,
		MarkBalance:   t.MarkBalance,
		movement:      credit.Sub(debit),
		paidOn:        t.PaidOn,
	}
}

// sortForComputation orders rows by client, manual position, date and docto,
// nulls last. Balances are a cumulative function of this order, so it must be
// stable and deterministic.
func sortForComputation(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ClientName != b.ClientName {
			return a.ClientName < b.ClientName
		}
		if c := compareNilLastInt(a.OrderIndex, b.OrderIndex); c != 0 {
			return c < 0
		}
		if c := compareNilLastTime(a.Date, b.Date); c != 0 {
			return c < 0
		}
		return a.Docto < b.Docto
	})
}

// sortForDisplay applies the final ordering: opening rows first and manual
// positions ascending regardless of direction; only the date and docto tiers
// flip when descending.
func sortForDisplay(rows []Row, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ClientName != b.ClientName {
			return a.ClientName < b.ClientName
		}
		if a.Opening != b.Opening {
			return a.Opening
		}
		if c := compareNilLastInt(a.OrderIndex, b.OrderIndex); c != 0 {
			return c < 0
		}
		if c := compareNilLastTime(a.Date, b.Date); c != 0 {
			if descending {
				return c > 0
			}
			return c < 0
		}
		if a.Docto != b.Docto {
			if descending {
				return a.Docto > b.Docto
			}
			return a.Docto < b.Docto
		}
		return false
	})
}

// withOpeningRows prepends each client's synthetic opening row. A client with
// an opening balance and no transactions still yields its single row.
func withOpeningRows(rows []Row, balances map[string]models.OpeningBalance, clientFilter string) []Row {
	if len(balances) == 0 {
		return rows
	}

	seen := make(map[string]bool)
	for _, r := range rows {
		seen[r.ClientName] = true
	}

	var extra []string
	for name := range balances {
		if seen[name] {
			continue
		}
		if clientFilter != "" && name != clientFilter {
			continue
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)

	out := make([]Row, 0, len(rows)+len(balances))
	emit := func(name string) {
		b, ok := balances[name]
		if !ok {
			return
		}
		out = append(out, openingRow(b))
	}

	// rows arrive grouped by client (computation order starts with the name)
	prev := ""
	for i, r := range rows {
		if i == 0 || r.ClientName != prev {
			// keep balance-only clients in name order relative to real ones
			for len(extra) > 0 && extra[0] < r.ClientName {
				emit(extra[0])
				extra = extra[1:]
			}
			emit(r.ClientName)
			prev = r.ClientName
		}
		out = append(out, r)
	}
	for _, name := range extra {
		emit(name)
	}
	return out
}

func openingRow(b models.OpeningBalance) Row {
	amount := b.Amount.Round(2)
	debit := decimal.Zero
	credit := decimal.Zero
	movement := amount
	if b.Side == models.SideDebit {
		debit = amount
		movement = amount.Neg()
	} else {
		credit = amount
	}
	date := truncateToDay(b.Date)
	return Row{
		ClientName: b.ClientName,
		Date:       &date,
		Docto:      OpeningDocto,
		Detail:     b.ClientName + " - " + OpeningDocto,
		Debit:      debit,
		Credit:     credit,
		Opening:    true,
		movement:   movement,
	}
}

// applyDueDate fills the due date, days overdue and overdue flag of one row.
// Only FA/PG documents with a date carry a due date; paid rows are never
// overdue.
func applyDueDate(r *Row, today time.Time, graceDays int) {
	code := strings.ToUpper(strings.TrimSpace(r.Docto))
	if r.Opening || r.Date == nil {
		return
	}
	if !strings.HasPrefix(code, "FA") && !strings.HasPrefix(code, "PG") {
		return
	}
	due := truncateToDay(*r.Date).AddDate(0, 0, graceDays)
	r.DueDate = &due

	if r.paidOn != nil {
		return // days stays 0, not overdue
	}
	days := daysBetween(due, today)
	if days < 0 {
		days = 0
	}
	r.Days = days
	r.Overdue = days > 0
}

// daysBetween counts whole calendar days from one date to another. Both
// endpoints are reduced to their calendar date so the caller's time zone
// cannot shift the count.
func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

// distinctClients lists the client names carried by active transactions;
// clients whose every row is voided do not appear.
func distinctClients(transactions []models.Transaction) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range transactions {
		if t.VoidedAt != nil {
			continue
		}
		name := strings.TrimSpace(t.ClientName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func compareNilLastInt(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareNilLastTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}
