package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// BucketLabels are the fixed aging ranges, right-inclusive: a document
// exactly 30 days overdue falls in the first bucket, exactly 90 in the third.
var BucketLabels = [4]string{"1-30", "31-60", "61-90", "90+"}

// AgingReport is the days-overdue histogram over overdue documents.
type AgingReport struct {
	Labels  [4]string         `json:"labels"`
	Amounts [4]decimal.Decimal `json:"amounts"`
	Counts  [4]int            `json:"counts"`
}

// ClientSummary aggregates one client's position.
type ClientSummary struct {
	Client        string          `json:"client"`
	Balance       decimal.Decimal `json:"balance"`
	OverdueCount  int             `json:"overdueCount"`
	OverdueAmount decimal.Decimal `json:"overdueAmount"`
}

// MonthTotal is one point of the payroll liability series.
type MonthTotal struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

// BucketIndex places a days-overdue value into its aging bucket, or -1 when
// the document is not overdue.
func BucketIndex(days int) int {
	switch {
	case days <= 0:
		return -1
	case days <= 30:
		return 0
	case days <= 60:
		return 1
	case days <= 90:
		return 2
	default:
		return 3
	}
}

// Aging builds the histogram over the overdue rows of a ledger result,
// weighting buckets by document amount.
func Aging(rows []Row) AgingReport {
	report := AgingReport{Labels: BucketLabels}
	for i := range report.Amounts {
		report.Amounts[i] = decimal.Zero
	}
	for _, r := range rows {
		if !r.Overdue {
			continue
		}
		idx := BucketIndex(r.Days)
		if idx < 0 {
			continue
		}
		report.Amounts[idx] = report.Amounts[idx].Add(r.Debit).Add(r.Credit)
		report.Counts[idx]++
	}
	return report
}

// Summarize folds ledger rows into per-client balances and overdue figures.
// The balance is each client's last running balance, matching the ledger's
// total-balance definition.
func Summarize(rows []Row) []ClientSummary {
	byClient := make(map[string]*ClientSummary)
	order := make([]string, 0)
	for _, r := range rows {
		s, ok := byClient[r.ClientName]
		if !ok {
			s = &ClientSummary{
				Client:        r.ClientName,
				Balance:       decimal.Zero,
				OverdueAmount: decimal.Zero,
			}
			byClient[r.ClientName] = s
			order = append(order, r.ClientName)
		}
		s.Balance = r.Balance // rows arrive in ledger order, last one wins
		if r.Overdue {
			s.OverdueCount++
			s.OverdueAmount = s.OverdueAmount.Add(r.Debit).Add(r.Credit)
		}
	}

	sort.Strings(order)
	out := make([]ClientSummary, 0, len(order))
	for _, name := range order {
		out = append(out, *byClient[name])
	}
	return out
}

// TopByOverdueAmount returns up to n clients ranked by overdue amount,
// highest first. Clients without overdue documents are excluded.
func TopByOverdueAmount(summaries []ClientSummary, n int) []ClientSummary {
	return topBy(summaries, n, func(a, b ClientSummary) bool {
		if !a.OverdueAmount.Equal(b.OverdueAmount) {
			return a.OverdueAmount.GreaterThan(b.OverdueAmount)
		}
		return a.Client < b.Client
	})
}

// TopByOverdueCount returns up to n clients ranked by overdue document
// count, highest first.
func TopByOverdueCount(summaries []ClientSummary, n int) []ClientSummary {
	return topBy(summaries, n, func(a, b ClientSummary) bool {
		if a.OverdueCount != b.OverdueCount {
			return a.OverdueCount > b.OverdueCount
		}
		return a.Client < b.Client
	})
}

func topBy(summaries []ClientSummary, n int, less func(a, b ClientSummary) bool) []ClientSummary {
	ranked := make([]ClientSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.OverdueCount > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// MonthlySeries fills the twelve periods of a year from the given totals,
// zero for months without payroll items.
func MonthlySeries(year int, totals map[string]decimal.Decimal) []MonthTotal {
	series := make([]MonthTotal, 0, 12)
	for m := 1; m <= 12; m++ {
		period := fmt.Sprintf("%d%02d", year, m)
		total, ok := totals[period]
		if !ok {
			total = decimal.Zero
		}
		series = append(series, MonthTotal{Period: period, Total: total})
	}
	return series
}
