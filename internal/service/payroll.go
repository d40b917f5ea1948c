package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvelasco/contable-server/internal/models"
	"github.com/rvelasco/contable-server/internal/payroll"
)

// PayrollRow pairs an employee with their line for one period.
type PayrollRow struct {
	Employee models.Employee    `json:"employee"`
	Item     models.PayrollItem `json:"item"`
}

// PayrollTotals are the column sums of a period view.
type PayrollTotals struct {
	BaseSalary         decimal.Decimal `json:"baseSalary"`
	GrossPay           decimal.Decimal `json:"grossPay"`
	TotalContrib       decimal.Decimal `json:"totalContrib"`
	TotalAdvances      decimal.Decimal `json:"totalAdvances"`
	TotalDeductions    decimal.Decimal `json:"totalDeductions"`
	TotalAllDeductions decimal.Decimal `json:"totalAllDeductions"`
	NetPay             decimal.Decimal `json:"netPay"`
}

// PayrollPeriodResponse is one month's payroll sheet.
type PayrollPeriodResponse struct {
	Status string        `json:"status"`
	Period string        `json:"period"`
	Rows   []PayrollRow  `json:"rows"`
	Totals PayrollTotals `json:"totals"`
}

// Employee methods
func (s *DefaultService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing employees: %w", err)
	}
	return employees, nil
}

func (s *DefaultService) CreateEmployee(ctx context.Context, req models.EmployeeRequest) (*models.Employee, error) {
	e := employeeFromRequest(req)
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("error creating employee: %w", err)
	}
	s.logger.Info("planilla", "employee_create", "employee created: "+e.FullName)
	return e, nil
}

func (s *DefaultService) UpdateEmployee(ctx context.Context, id int64, req models.EmployeeRequest) (*models.Employee, error) {
	existing, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting employee: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	e := employeeFromRequest(req)
	e.ID = id
	if err := s.repo.UpdateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("error updating employee: %w", err)
	}
	return e, nil
}

func employeeFromRequest(req models.EmployeeRequest) *models.Employee {
	return &models.Employee{
		Carnet:      strings.TrimSpace(req.Carnet),
		FullName:    strings.TrimSpace(req.FullName),
		JobTitle:    strings.TrimSpace(req.JobTitle),
		CUA:         strings.TrimSpace(req.CUA),
		CNS:         strings.TrimSpace(req.CNS),
		CNSPatronal: strings.TrimSpace(req.CNSPatronal),
		HireDate:    parseISODate(req.HireDate),
		BaseSalary:  req.BaseSalary.Round(2),
	}
}

// Payroll methods

// SetPayrollField edits one input cell of one employee's line and persists
// the recomputed totals. The line is created on first edit of a period.
func (s *DefaultService) SetPayrollField(ctx context.Context, req models.PayrollFieldRequest) (*PayrollRow, error) {
	employee, err := s.repo.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("error getting employee: %w", err)
	}
	if employee == nil {
		return nil, ErrNotFound
	}

	value, err := payroll.ParseFieldValue(req.Field, req.Value)
	if err != nil {
		return nil, err
	}

	if err := s.repo.EnsurePayrollItem(ctx, req.Period, req.EmployeeID); err != nil {
		return nil, fmt.Errorf("error creating payroll item: %w", err)
	}
	if err := s.repo.UpdatePayrollInput(ctx, req.Period, req.EmployeeID, req.Field, value); err != nil {
		return nil, fmt.Errorf("error updating payroll field: %w", err)
	}

	item, err := s.repo.GetPayrollItem(ctx, req.Period, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("error reloading payroll item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}

	totals := payroll.Recalculate(employee.BaseSalary, item)
	totals.Apply(item)
	if err := s.repo.UpdatePayrollDerived(ctx, item); err != nil {
		return nil, fmt.Errorf("error persisting payroll totals: %w", err)
	}

	return &PayrollRow{Employee: *employee, Item: *item}, nil
}

// PayrollPeriod builds the full sheet for one month: every employee gets a
// row, zero-valued when nothing has been edited yet, with totals recomputed
// from the current base salaries.
func (s *DefaultService) PayrollPeriod(ctx context.Context, period string) (*PayrollPeriodResponse, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing employees: %w", err)
	}
	items, err := s.repo.ListPayrollItems(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("error listing payroll items: %w", err)
	}

	byEmployee := make(map[int64]models.PayrollItem, len(items))
	for _, item := range items {
		byEmployee[item.EmployeeID] = item
	}

	resp := &PayrollPeriodResponse{
		Status: "success",
		Period: period,
		Rows:   make([]PayrollRow, 0, len(employees)),
		Totals: zeroPayrollTotals(),
	}
	for _, e := range employees {
		item, ok := byEmployee[e.ID]
		if !ok {
			item = models.PayrollItem{Period: period, EmployeeID: e.ID}
		}
		totals := payroll.Recalculate(e.BaseSalary, &item)
		totals.Apply(&item)

		resp.Rows = append(resp.Rows, PayrollRow{Employee: e, Item: item})
		resp.Totals.BaseSalary = resp.Totals.BaseSalary.Add(e.BaseSalary)
		resp.Totals.GrossPay = resp.Totals.GrossPay.Add(item.GrossPay)
		resp.Totals.TotalContrib = resp.Totals.TotalContrib.Add(item.TotalContrib)
		resp.Totals.TotalAdvances = resp.Totals.TotalAdvances.Add(item.TotalAdvances)
		resp.Totals.TotalDeductions = resp.Totals.TotalDeductions.Add(item.TotalDeductions)
		resp.Totals.TotalAllDeductions = resp.Totals.TotalAllDeductions.Add(item.TotalAllDeduction)
		resp.Totals.NetPay = resp.Totals.NetPay.Add(item.NetPay)
	}
	return resp, nil
}

func zeroPayrollTotals() PayrollTotals {
	return PayrollTotals{
		BaseSalary:         decimal.Zero,
		GrossPay:           decimal.Zero,
		TotalContrib:       decimal.Zero,
		TotalAdvances:      decimal.Zero,
		TotalDeductions:    decimal.Zero,
		TotalAllDeductions: decimal.Zero,
		NetPay:             decimal.Zero,
	}
}

// SnapshotPayroll freezes the current period sheet as an immutable JSON
// capture.
func (s *DefaultService) SnapshotPayroll(ctx context.Context, period string) error {
	sheet, err := s.PayrollPeriod(ctx, period)
	if err != nil {
		return err
	}

	// Deterministic order inside the capture
	sort.SliceStable(sheet.Rows, func(i, j int) bool {
		return sheet.Rows[i].Employee.FullName < sheet.Rows[j].Employee.FullName
	})

	data, err := json.Marshal(struct {
		Period    string        `json:"period"`
		TakenAt   time.Time     `json:"takenAt"`
		Rows      []PayrollRow  `json:"rows"`
		Totals    PayrollTotals `json:"totals"`
		RowsCount int           `json:"rowsCount"`
	}{
		Period:    period,
		TakenAt:   s.now().UTC(),
		Rows:      sheet.Rows,
		Totals:    sheet.Totals,
		RowsCount: len(sheet.Rows),
	})
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	if err := s.repo.SavePayrollSnapshot(ctx, period, data); err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}
	s.logger.Info("planilla", "snapshot", "snapshot saved for period "+period)
	return nil
}
