package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvelasco/contable-server/internal/export"
	"github.com/rvelasco/contable-server/internal/ingest"
	"github.com/rvelasco/contable-server/internal/ledger"
	"github.com/rvelasco/contable-server/internal/models"
)

// StatementQuery selects and orders the ledger view.
type StatementQuery struct {
	Client     string
	Start, End *time.Time
	Descending bool
}

// StatementResponse is the ledger view plus the envelope status.
type StatementResponse struct {
	Status string `json:"status"`
	ledger.Result
}

// DashboardResponse aggregates receivables and payroll figures for the
// landing page.
type DashboardResponse struct {
	Status        string                 `json:"status"`
	TotalDebit    decimal.Decimal        `json:"totalDebit"`
	TotalCredit   decimal.Decimal        `json:"totalCredit"`
	TotalBalance  decimal.Decimal        `json:"totalBalance"`
	ActiveCount   int64                  `json:"activeCount"`
	ClientCount   int                    `json:"clientCount"`
	OverdueCount  int                    `json:"overdueCount"`
	OverdueAmount decimal.Decimal        `json:"overdueAmount"`
	Aging         ledger.AgingReport     `json:"aging"`
	Clients       []ledger.ClientSummary `json:"clients"`
	TopByAmount   []ledger.ClientSummary `json:"topByAmount"`
	TopByCount    []ledger.ClientSummary `json:"topByCount"`
	MonthlyNetPay []ledger.MonthTotal    `json:"monthlyNetPay"`
}

// topClientsLimit caps the dashboard delinquency rankings.
const topClientsLimit = 5

// IngestUpload parses a spreadsheet and stores its rows. With dryRun the file
// is validated and counted but nothing is written. A row-level problem never
// aborts the batch; it is reported in the summary instead.
func (s *DefaultService) IngestUpload(ctx context.Context, file io.Reader, dryRun bool) (*models.UploadSummary, error) {
	records, err := ingest.Parse(file)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &models.UploadSummary{
		Status: "success",
		DryRun: dryRun,
		Errors: []string{},
		Date:   now.Format("2006-01-02"),
		Time:   now.Format("15:04:05"),
	}

	for i, rec := range records {
		summary.Processed++
		rowNum := i + 2 // 1-based, after the header row

		if rec.Client == "" {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("fila %d: cliente vacío", rowNum))
			continue
		}
		if dryRun {
			continue
		}

		client, err := s.repo.GetOrCreateClient(ctx, rec.Client)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("fila %d: %v", rowNum, err))
			continue
		}

		kind, amount := classifyMovement(rec.Debit, rec.Credit)
		t := &models.Transaction{
			ClientID:    client.ID,
			Date:        parseISODate(rec.Date),
			Kind:        kind,
			Amount:      amount,
			Description: rec.Detail,
			Docto:       rec.Docto,
			Agent:       rec.Agent,
			Dim:         rec.Dim,
			DueDate:     parseISODate(rec.DueDate),
		}

		inserted, err := s.repo.InsertTransaction(ctx, t)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("fila %d: %v", rowNum, err))
			continue
		}
		if inserted {
			summary.Added++
		} else {
			summary.Duplicates++
		}
	}

	total, err := s.repo.CountActiveTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting transactions: %w", err)
	}
	summary.TotalRecords = total

	s.logger.Info("estado", "upload",
		fmt.Sprintf("processed=%d added=%d duplicates=%d skipped=%d dryrun=%t",
			summary.Processed, summary.Added, summary.Duplicates, summary.Skipped, dryRun))
	return summary, nil
}

// classifyMovement maps raw debit/credit cells to a movement kind and amount.
// When both sides are positive the larger one wins, ties going to a payment,
// and the amount is the absolute net.
func classifyMovement(debit, credit decimal.Decimal) (string, decimal.Decimal) {
	if debit.IsPositive() && credit.IsPositive() {
		net := credit.Sub(debit)
		if net.Sign() >= 0 {
			return models.KindPayment, net
		}
		return models.KindCharge, net.Neg()
	}
	if credit.IsPositive() {
		return models.KindPayment, credit
	}
	return models.KindCharge, debit
}

// Statement builds the ledger view. When a single client is selected, that
// client's stored grace period overrides the default.
func (s *DefaultService) Statement(ctx context.Context, q StatementQuery) (*StatementResponse, error) {
	result, err := s.buildLedger(ctx, q)
	if err != nil {
		return nil, err
	}
	return &StatementResponse{Status: "success", Result: *result}, nil
}

func (s *DefaultService) buildLedger(ctx context.Context, q StatementQuery) (*ledger.Result, error) {
	transactions, err := s.repo.ListActiveTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}
	balances, err := s.repo.ListOpeningBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing opening balances: %w", err)
	}

	graceDays, err := s.graceDaysFor(ctx, q.Client)
	if err != nil {
		return nil, err
	}

	result := ledger.Build(transactions, balances, ledger.BuildOptions{
		Client:     strings.TrimSpace(q.Client),
		Start:      q.Start,
		End:        q.End,
		Descending: q.Descending,
		GraceDays:  graceDays,
		Today:      s.now(),
	})
	return &result, nil
}

func (s *DefaultService) graceDaysFor(ctx context.Context, clientName string) (int, error) {
	name := strings.TrimSpace(clientName)
	if name == "" {
		return 0, nil // builder default
	}
	client, err := s.repo.GetClientByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return 0, nil
	}
	pref, err := s.repo.GetClientPreference(ctx, client.ID)
	if err != nil {
		return 0, fmt.Errorf("error getting client preference: %w", err)
	}
	if pref == nil {
		return 0, nil
	}
	return pref.GraceDays, nil
}

func (s *DefaultService) VoidedTransactions(ctx context.Context) ([]models.Transaction, error) {
	transactions, err := s.repo.ListVoidedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing voided transactions: %w", err)
	}
	return transactions, nil
}

// ExportStatement renders the selected ledger view as an xlsx workbook.
func (s *DefaultService) ExportStatement(ctx context.Context, q StatementQuery) ([]byte, error) {
	result, err := s.buildLedger(ctx, q)
	if err != nil {
		return nil, err
	}
	return export.Statement(result)
}

// Transaction maintenance

// UpdateTransaction applies a partial edit. Changing the debit or credit
// amount reclassifies the movement, and the document and date changes refresh
// the derived due date and detail text.
func (s *DefaultService) UpdateTransaction(ctx context.Context, id int64, req models.UpdateTransactionRequest) error {
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting transaction: %w", err)
	}
	if t == nil {
		return ErrNotFound
	}

	debit := decimal.Zero
	credit := decimal.Zero
	if t.Kind == models.KindCharge {
		debit = t.Amount
	} else {
		credit = t.Amount
	}
	if req.Debit != nil {
		debit = *req.Debit
	}
	if req.Credit != nil {
		credit = *req.Credit
	}
	t.Kind, t.Amount = classifyMovement(debit.Round(2), credit.Round(2))

	if req.Date != nil {
		t.Date = parseISODate(*req.Date)
	}
	if req.Docto != nil {
		t.Docto = strings.TrimSpace(*req.Docto)
	}
	if req.Agent != nil {
		t.Agent = strings.TrimSpace(*req.Agent)
	}
	if req.Dim != nil {
		t.Dim = strings.TrimSpace(*req.Dim)
	}

	t.Description = strings.Trim(t.ClientName+" - "+t.Docto, " -")
	t.DueDate = deriveDueDate(t.Docto, t.Date)

	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("error updating transaction: %w", err)
	}
	return nil
}

// deriveDueDate mirrors the ingestion rule: invoices and payment plans fall
// due 30 days after their document date.
func deriveDueDate(docto string, date *time.Time) *time.Time {
	if date == nil {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(docto))
	if !strings.HasPrefix(code, "FA") && !strings.HasPrefix(code, "PG") {
		return nil
	}
	due := date.AddDate(0, 0, ledger.DefaultGraceDays)
	return &due
}

func (s *DefaultService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.notFoundWrap(s.repo.DeleteTransaction(ctx, id), "error deleting transaction")
}

func (s *DefaultService) VoidTransaction(ctx context.Context, id int64) error {
	return s.notFoundWrap(s.repo.VoidTransaction(ctx, id), "error voiding transaction")
}

func (s *DefaultService) MarkPaid(ctx context.Context, id int64) error {
	return s.notFoundWrap(s.repo.MarkPaid(ctx, id), "error marking transaction paid")
}

func (s *DefaultService) Reorder(ctx context.Context, req models.ReorderRequest) error {
	client, err := s.repo.GetClientByName(ctx, req.Client)
	if err != nil {
		return fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return ErrNotFound
	}
	if err := s.repo.Reorder(ctx, client.ID, req.IDs); err != nil {
		return fmt.Errorf("error reordering transactions: %w", err)
	}
	return nil
}

func (s *DefaultService) SetMarker(ctx context.Context, id int64, req models.MarkerRequest) error {
	return s.notFoundWrap(s.repo.SetCellMarker(ctx, id, req.Column, req.Value), "error setting marker")
}

func (s *DefaultService) ClearMarkers(ctx context.Context, client string) error {
	if err := s.repo.ClearMarkers(ctx, client); err != nil {
		return fmt.Errorf("error clearing markers: %w", err)
	}
	return nil
}

// Opening balances and preferences

func (s *DefaultService) UpsertOpeningBalance(ctx context.Context, req models.OpeningBalanceRequest) error {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	client, err := s.repo.GetOrCreateClient(ctx, req.Client)
	if err != nil {
		return fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return fmt.Errorf("%w: client name is blank", ErrInvalidInput)
	}
	if err := s.repo.UpsertOpeningBalance(ctx, client.ID, req.Amount.Round(2), req.Side, date); err != nil {
		return fmt.Errorf("error saving opening balance: %w", err)
	}
	return nil
}

func (s *DefaultService) DeleteOpeningBalance(ctx context.Context, client string) error {
	if err := s.repo.DeleteOpeningBalance(ctx, client); err != nil {
		return fmt.Errorf("error deleting opening balance: %w", err)
	}
	return nil
}

func (s *DefaultService) ListOpeningBalances(ctx context.Context) ([]models.OpeningBalance, error) {
	balances, err := s.repo.ListOpeningBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing opening balances: %w", err)
	}
	return balances, nil
}

func (s *DefaultService) SetClientPreference(ctx context.Context, req models.PreferenceRequest) error {
	client, err := s.repo.GetOrCreateClient(ctx, req.Client)
	if err != nil {
		return fmt.Errorf("error getting client: %w", err)
	}
	if client == nil {
		return fmt.Errorf("%w: client name is blank", ErrInvalidInput)
	}
	if err := s.repo.UpsertClientPreference(ctx, client.ID, req.GraceDays); err != nil {
		return fmt.Errorf("error saving client preference: %w", err)
	}
	return nil
}

// Dashboard aggregates the full ledger plus the year's payroll liability.
func (s *DefaultService) Dashboard(ctx context.Context, year int) (*DashboardResponse, error) {
	if year <= 0 {
		year = s.now().Year()
	}

	result, err := s.buildLedger(ctx, StatementQuery{})
	if err != nil {
		return nil, err
	}

	summaries := ledger.Summarize(result.Rows)
	overdueCount := 0
	overdueAmount := decimal.Zero
	for _, summary := range summaries {
		overdueCount += summary.OverdueCount
		overdueAmount = overdueAmount.Add(summary.OverdueAmount)
	}

	activeCount, err := s.repo.CountActiveTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting transactions: %w", err)
	}

	netPay, err := s.repo.MonthlyNetPay(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("error loading monthly net pay: %w", err)
	}

	return &DashboardResponse{
		Status:        "success",
		TotalDebit:    result.TotalDebit,
		TotalCredit:   result.TotalCredit,
		TotalBalance:  result.TotalBalance,
		ActiveCount:   activeCount,
		ClientCount:   len(summaries),
		OverdueCount:  overdueCount,
		OverdueAmount: overdueAmount.Round(2),
		Aging:         ledger.Aging(result.Rows),
		Clients:       summaries,
		TopByAmount:   ledger.TopByOverdueAmount(summaries, topClientsLimit),
		TopByCount:    ledger.TopByOverdueCount(summaries, topClientsLimit),
		MonthlyNetPay: ledger.MonthlySeries(year, netPay),
	}, nil
}

// OverdueDocuments is the dashboard drill-down: the overdue rows of the
// current ledger, optionally filtered to one client.
func (s *DefaultService) OverdueDocuments(ctx context.Context, client string) ([]ledger.Row, error) {
	result, err := s.buildLedger(ctx, StatementQuery{Client: strings.TrimSpace(client)})
	if err != nil {
		return nil, err
	}
	overdue := make([]ledger.Row, 0)
	for _, row := range result.Rows {
		if row.Overdue {
			overdue = append(overdue, row)
		}
	}
	return overdue, nil
}

// notFoundWrap converts the repository's no-rows signal into ErrNotFound.
func (s *DefaultService) notFoundWrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// parseISODate returns nil for blank or non-ISO input; the raw text was
// already preserved upstream.
func parseISODate(v string) *time.Time {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &d
}
